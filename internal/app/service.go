package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/syncnotes/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Model               string
	EmailDomain         string
	ShareBaseURL        string
	TranscriptionPolicy RequestPolicy
	MindMapPolicy       RequestPolicy
	ChatPolicy          RequestPolicy
	Logger              Logger
	Sleep               SleepFunc
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service owns meeting records and orchestrates the analysis pipeline around them.
type Service struct {
	store        *meetingStore
	locks        *recordLocks
	extractor    *TranscriptionExtractor
	mindMaps     *MindMapSynthesizer
	grounding    *ConversationalGrounding
	deliverer    ReportDeliverer
	idGen        IDGenerator
	clock        Clock
	logger       Logger
	emailDomain  string
	shareBaseURL string
}

// NewService constructs a new value for this package.
func NewService(store KeyValueStore, inference InferenceClient, deliverer ReportDeliverer, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	guard := NewRequestGuard(cfg.Logger, cfg.Sleep, clock)
	return &Service{
		store:        newMeetingStore(store),
		locks:        newRecordLocks(),
		extractor:    NewTranscriptionExtractor(inference, guard, cmp.Or(cfg.TranscriptionPolicy, TranscriptionPolicy), cfg.Model),
		mindMaps:     NewMindMapSynthesizer(inference, guard, cmp.Or(cfg.MindMapPolicy, MindMapPolicy), cfg.Model, cfg.Logger),
		grounding:    NewConversationalGrounding(inference, guard, cmp.Or(cfg.ChatPolicy, ChatPolicy), cfg.Model, cfg.Logger),
		deliverer:    deliverer,
		idGen:        idGen,
		clock:        clock,
		logger:       cfg.Logger,
		emailDomain:  cfg.EmailDomain,
		shareBaseURL: cfg.ShareBaseURL,
	}
}

// CreateMeetingInput holds input values for create meeting operations.
type CreateMeetingInput struct {
	Title        string
	Agenda       string
	Date         string
	Time         string
	Participants []string
}

// CreateMeeting creates a draft meeting.
func (s *Service) CreateMeeting(ctx context.Context, in CreateMeetingInput) (domain.Meeting, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Meeting{}, err
	}
	meeting, err := domain.NewMeeting(domain.MeetingInput{
		ID:               s.idGen(),
		Title:            in.Title,
		Agenda:           in.Agenda,
		Date:             in.Date,
		Time:             in.Time,
		ParticipantNames: in.Participants,
		EmailDomain:      s.emailDomain,
	}, s.idGen, s.clock())
	if err != nil {
		return domain.Meeting{}, err
	}
	if err := s.store.insert(ctx, meeting); err != nil {
		return domain.Meeting{}, err
	}
	s.logger.Info("meeting created", "meeting_id", meeting.ID, "participants", len(meeting.Participants))
	return meeting, nil
}

// GetMeeting returns one meeting visible to the caller.
func (s *Service) GetMeeting(ctx context.Context, meetingID string) (domain.Meeting, error) {
	meeting, err := s.store.get(ctx, strings.TrimSpace(meetingID))
	if err != nil {
		return domain.Meeting{}, err
	}
	if !meeting.VisibleTo(ViewerRoleFromContext(ctx)) {
		return domain.Meeting{}, ErrNotFound
	}
	return meeting, nil
}

// ListMeetings lists meetings visible to the caller, newest first.
func (s *Service) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	meetings, err := s.store.list(ctx)
	if err != nil {
		return nil, err
	}
	role := ViewerRoleFromContext(ctx)
	out := slices.DeleteFunc(meetings, func(m domain.Meeting) bool { return !m.VisibleTo(role) })
	slices.SortStableFunc(out, func(a, b domain.Meeting) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// ProcessAudio analyzes a recording and applies the result to the meeting in one update.
// Inference runs without holding the meeting lock.
func (s *Service) ProcessAudio(ctx context.Context, meetingID string, audio AudioInput) (domain.Meeting, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Meeting{}, err
	}
	meetingID = strings.TrimSpace(meetingID)
	meeting, err := s.store.get(ctx, meetingID)
	if err != nil {
		return domain.Meeting{}, err
	}

	started := s.clock()
	intel, err := s.extractor.Extract(ctx, audio, meeting.Agenda)
	if err != nil {
		s.logger.Error("meeting analysis failed", "meeting_id", meetingID, "err", err)
		return domain.Meeting{}, err
	}
	tree, err := s.mindMaps.Synthesize(ctx, intel.Summary)
	if err != nil {
		s.logger.Error("mind map synthesis failed", "meeting_id", meetingID, "err", err)
		return domain.Meeting{}, err
	}

	release := s.locks.lock(meetingID)
	defer release()
	updated, err := s.store.update(ctx, meetingID, func(m *domain.Meeting) (bool, error) {
		return true, m.CompleteAnalysis(intel, tree, s.idGen)
	})
	if err != nil {
		return domain.Meeting{}, err
	}
	s.logger.Info("meeting analyzed", "meeting_id", meetingID, "tasks", len(updated.Tasks), "elapsed", s.clock().Sub(started))
	return updated, nil
}

// ToggleTask flips one task's status. It reports false and leaves the record unchanged when no task matches.
func (s *Service) ToggleTask(ctx context.Context, meetingID, taskID string) (domain.Meeting, bool, error) {
	meetingID = strings.TrimSpace(meetingID)
	role := ShareVisitorRole(ctx)
	release := s.locks.lock(meetingID)
	defer release()

	toggled := false
	updated, err := s.store.update(ctx, meetingID, func(m *domain.Meeting) (bool, error) {
		if !m.VisibleTo(role) {
			return false, ErrNotFound
		}
		toggled = m.ToggleTask(taskID)
		return toggled, nil
	})
	if err != nil {
		return domain.Meeting{}, false, err
	}
	return updated, toggled, nil
}

// PublishResult reports a publish transition and the outcome of the follow-up notification.
type PublishResult struct {
	Meeting   domain.Meeting
	ShareLink string
	// NotifyErr is set when delivery failed; the publish itself still succeeded.
	NotifyErr error
}

// Publish publishes an analyzed meeting and then notifies its participants.
// Every call notifies, including repeats on an already published meeting.
func (s *Service) Publish(ctx context.Context, meetingID string) (PublishResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return PublishResult{}, err
	}
	meetingID = strings.TrimSpace(meetingID)
	release := s.locks.lock(meetingID)
	defer release()

	updated, err := s.store.update(ctx, meetingID, func(m *domain.Meeting) (bool, error) {
		wasPublished := m.IsPublished()
		if err := m.Publish(); err != nil {
			return false, err
		}
		return !wasPublished, nil
	})
	if err != nil {
		return PublishResult{}, err
	}
	result := PublishResult{Meeting: updated, ShareLink: s.ShareLink(meetingID)}
	s.logger.Info("meeting published", "meeting_id", meetingID)
	result.NotifyErr = s.notify(ctx, updated, result.ShareLink)
	return result, nil
}

func (s *Service) notify(ctx context.Context, meeting domain.Meeting, link string) error {
	recipients := meeting.Recipients()
	if len(recipients) == 0 {
		s.logger.Warn("report not sent", "meeting_id", meeting.ID, "err", ErrNoRecipients)
		return fmt.Errorf("%w: %w", ErrNotification, ErrNoRecipients)
	}
	if s.deliverer == nil {
		s.logger.Debug("no report deliverer configured", "meeting_id", meeting.ID)
		return nil
	}
	if err := s.deliverer.DeliverReport(ctx, meeting, recipients, link); err != nil {
		s.logger.Warn("report delivery failed", "meeting_id", meeting.ID, "recipients", len(recipients), "err", err)
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	s.logger.Info("report delivered", "meeting_id", meeting.ID, "recipients", len(recipients))
	return nil
}

// ShareLink returns the shareable link for a meeting.
func (s *Service) ShareLink(meetingID string) string {
	return BuildShareLink(s.shareBaseURL, meetingID)
}

// ResolveShareLink opens a published meeting through its share link and logs the access.
// Unknown and unpublished meetings are reported as not found.
func (s *Service) ResolveShareLink(ctx context.Context, meetingID string) (domain.Meeting, error) {
	meetingID = strings.TrimSpace(meetingID)
	role := ViewerRoleFromContext(ctx)
	release := s.locks.lock(meetingID)
	defer release()

	updated, err := s.store.update(ctx, meetingID, func(m *domain.Meeting) (bool, error) {
		if _, err := m.RecordAccess(role, s.clock()); err != nil {
			if errors.Is(err, domain.ErrNotPublished) {
				return false, ErrNotFound
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return domain.Meeting{}, err
	}
	s.logger.Debug("shared meeting opened", "meeting_id", meetingID, "role", role)
	return updated, nil
}

// AskMeeting answers a question grounded in one analyzed meeting.
// Inference failures come back as a fixed apology rather than an error.
func (s *Service) AskMeeting(ctx context.Context, meetingID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return "", err
	}
	if !meeting.IsAnalyzed() {
		return "", domain.ErrNotAnalyzed
	}
	return s.grounding.Ask(ctx, meeting, question), nil
}
