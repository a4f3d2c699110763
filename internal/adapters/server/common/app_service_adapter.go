package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
)

const summaryPreviewRunes = 140

// AppServiceAdapter maps transport contracts onto app.Service meeting APIs.
type AppServiceAdapter struct {
	service *app.Service
}

func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

var _ MeetingService = (*AppServiceAdapter)(nil)

func (a *AppServiceAdapter) ListMeetings(ctx context.Context) ([]MeetingSummary, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	meetings, err := a.service.ListMeetings(ctx)
	if err != nil {
		return nil, mapAppError("list meetings", err)
	}
	out := make([]MeetingSummary, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, mapMeetingSummary(m))
	}
	return out, nil
}

func (a *AppServiceAdapter) GetMeeting(ctx context.Context, meetingID string) (MeetingDetail, error) {
	if err := a.ready(); err != nil {
		return MeetingDetail{}, err
	}
	meeting, err := a.service.GetMeeting(ctx, meetingID)
	if err != nil {
		return MeetingDetail{}, mapAppError("get meeting", err)
	}
	return a.detail(meeting), nil
}

func (a *AppServiceAdapter) CreateMeeting(ctx context.Context, in CreateMeetingRequest) (MeetingDetail, error) {
	if err := a.ready(); err != nil {
		return MeetingDetail{}, err
	}
	meeting, err := a.service.CreateMeeting(ctx, app.CreateMeetingInput{
		Title:        in.Title,
		Agenda:       in.Agenda,
		Date:         in.Date,
		Time:         in.Time,
		Participants: in.Participants,
	})
	if err != nil {
		return MeetingDetail{}, mapAppError("create meeting", err)
	}
	return a.detail(meeting), nil
}

func (a *AppServiceAdapter) ProcessAudio(ctx context.Context, in ProcessAudioRequest) (MeetingDetail, error) {
	if err := a.ready(); err != nil {
		return MeetingDetail{}, err
	}
	meeting, err := a.service.ProcessAudio(ctx, in.MeetingID, app.AudioInput{
		Data:     in.Data,
		MIMEType: strings.TrimSpace(in.MIMEType),
	})
	if err != nil {
		return MeetingDetail{}, mapAppError("process audio", err)
	}
	return a.detail(meeting), nil
}

func (a *AppServiceAdapter) ToggleTask(ctx context.Context, in ToggleTaskRequest) (ToggleTaskResult, error) {
	if err := a.ready(); err != nil {
		return ToggleTaskResult{}, err
	}
	meeting, toggled, err := a.service.ToggleTask(ctx, in.MeetingID, in.TaskID)
	if err != nil {
		return ToggleTaskResult{}, mapAppError("toggle task", err)
	}
	return ToggleTaskResult{Toggled: toggled, Meeting: a.detail(meeting)}, nil
}

func (a *AppServiceAdapter) PublishMeeting(ctx context.Context, meetingID string) (PublishResult, error) {
	if err := a.ready(); err != nil {
		return PublishResult{}, err
	}
	result, err := a.service.Publish(ctx, meetingID)
	if err != nil {
		return PublishResult{}, mapAppError("publish meeting", err)
	}
	out := PublishResult{
		Meeting:   a.detail(result.Meeting),
		ShareLink: result.ShareLink,
		Notified:  result.NotifyErr == nil,
	}
	if result.NotifyErr != nil {
		out.NotifyError = result.NotifyErr.Error()
	}
	return out, nil
}

func (a *AppServiceAdapter) AskMeeting(ctx context.Context, in AskRequest) (AskResult, error) {
	if err := a.ready(); err != nil {
		return AskResult{}, err
	}
	answer, err := a.service.AskMeeting(ctx, in.MeetingID, in.Question)
	if err != nil {
		return AskResult{}, mapAppError("ask meeting", err)
	}
	return AskResult{MeetingID: strings.TrimSpace(in.MeetingID), Answer: answer}, nil
}

// OpenShareLink resolves a share link (or bare id) and records the access.
func (a *AppServiceAdapter) OpenShareLink(ctx context.Context, link string) (MeetingDetail, error) {
	if err := a.ready(); err != nil {
		return MeetingDetail{}, err
	}
	meetingID, err := app.ParseShareLink(link)
	if err != nil {
		return MeetingDetail{}, mapAppError("open share link", err)
	}
	meeting, err := a.service.ResolveShareLink(ctx, meetingID)
	if err != nil {
		return MeetingDetail{}, mapAppError("open share link", err)
	}
	return a.detail(meeting), nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

func (a *AppServiceAdapter) detail(m domain.Meeting) MeetingDetail {
	out := mapMeetingDetail(m)
	if m.IsPublished() {
		out.ShareLink = a.service.ShareLink(m.ID)
	}
	return out
}

func mapMeetingSummary(m domain.Meeting) MeetingSummary {
	done, total := m.TaskProgress()
	preview := []rune(strings.TrimSpace(m.Summary))
	if len(preview) > summaryPreviewRunes {
		preview = append(preview[:summaryPreviewRunes], '…')
	}
	return MeetingSummary{
		ID:             m.ID,
		Title:          m.Title,
		Date:           m.Date,
		Time:           m.Time,
		Status:         string(m.Status),
		Participants:   len(m.Participants),
		TasksDone:      done,
		TasksTotal:     total,
		CreatedAt:      m.CreatedAt,
		SummaryPreview: string(preview),
	}
}

func mapMeetingDetail(m domain.Meeting) MeetingDetail {
	out := MeetingDetail{
		ID:             m.ID,
		Title:          m.Title,
		Agenda:         m.Agenda,
		Date:           m.Date,
		Time:           m.Time,
		Status:         string(m.Status),
		Participants:   make([]Participant, 0, len(m.Participants)),
		Transcript:     m.Transcript,
		Summary:        m.Summary,
		Conclusion:     m.Conclusion,
		StrategyShifts: append([]string(nil), m.StrategyShifts...),
		CreatedAt:      m.CreatedAt,
	}
	for _, p := range m.Participants {
		out.Participants = append(out.Participants, Participant{ID: p.ID, Name: p.Name, Email: p.Email})
	}
	for _, task := range m.Tasks {
		out.Tasks = append(out.Tasks, Task{
			ID:       task.ID,
			Title:    task.Title,
			Assignee: task.Assignee,
			Status:   string(task.Status),
		})
	}
	if m.MindMap != nil {
		node := mapMindMapNode(*m.MindMap)
		out.MindMap = &node
	}
	for _, entry := range m.AccessLogs {
		out.AccessLogs = append(out.AccessLogs, AccessLogEntry{
			Timestamp:  entry.Timestamp,
			ViewerRole: string(entry.ViewerRole),
		})
	}
	return out
}

func mapMindMapNode(n domain.MindMapNode) MindMapNode {
	out := MindMapNode{Name: n.Name}
	for _, child := range n.Children {
		out.Children = append(out.Children, mapMindMapNode(child))
	}
	return out
}

// mapAppError classifies app errors while keeping the original chain inspectable.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrForbidden):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrForbidden, err))
	case errors.Is(err, domain.ErrNotAnalyzed):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case app.IsValidationFailure(err):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, app.ErrTransport),
		errors.Is(err, app.ErrTimeout),
		errors.Is(err, app.ErrRetriesExhausted),
		errors.Is(err, app.ErrSchemaParse):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUpstream, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
