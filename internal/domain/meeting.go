package domain

import (
	"slices"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Meeting is the root record of one recorded meeting and its derived intelligence.
type Meeting struct {
	ID             string
	Title          string
	Agenda         string
	Date           string
	Time           string
	Participants   []Participant
	Transcript     string
	Summary        string
	Conclusion     string
	StrategyShifts []string
	Tasks          []Task
	MindMap        *MindMapNode
	Status         Status
	CreatedAt      time.Time
	AccessLogs     []AccessLogEntry
}

// MeetingInput holds the creation fields of a meeting.
type MeetingInput struct {
	ID               string
	Title            string
	Agenda           string
	Date             string
	Time             string
	ParticipantNames []string
	EmailDomain      string
}

// Intelligence is the structured analysis extracted from a meeting recording.
type Intelligence struct {
	Transcript     string
	Summary        string
	Conclusion     string
	StrategyShifts []string
	Tasks          []ExtractedTask
}

// NewMeeting validates the creation fields and returns a draft meeting.
// newID supplies participant ids.
func NewMeeting(in MeetingInput, newID func() string, now time.Time) (Meeting, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Agenda = strings.TrimSpace(in.Agenda)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	if in.ID == "" {
		return Meeting{}, ErrInvalidID
	}
	if in.Title == "" || strings.ContainsAny(in.Title, "\r\n") {
		return Meeting{}, ErrInvalidTitle
	}
	if in.Agenda == "" {
		return Meeting{}, ErrInvalidAgenda
	}
	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return Meeting{}, ErrInvalidDate
	}
	if _, err := time.Parse(timeLayout, in.Time); err != nil {
		return Meeting{}, ErrInvalidTime
	}
	names := SplitParticipantNames(in.ParticipantNames)
	if len(names) == 0 {
		return Meeting{}, ErrNoParticipants
	}

	participants := make([]Participant, 0, len(names))
	for _, name := range names {
		id := ""
		if newID != nil {
			id = strings.TrimSpace(newID())
		}
		if id == "" {
			return Meeting{}, ErrInvalidID
		}
		participants = append(participants, Participant{
			ID:    id,
			Name:  name,
			Email: DeriveEmail(name, in.EmailDomain),
		})
	}

	return Meeting{
		ID:             in.ID,
		Title:          in.Title,
		Agenda:         in.Agenda,
		Date:           in.Date,
		Time:           in.Time,
		Participants:   participants,
		StrategyShifts: []string{},
		Tasks:          []Task{},
		Status:         StatusDraft,
		CreatedAt:      now.UTC(),
		AccessLogs:     []AccessLogEntry{},
	}, nil
}

// IsAnalyzed reports whether analysis has completed at least once.
func (m Meeting) IsAnalyzed() bool {
	return m.Status == StatusAnalyzed || m.Status == StatusPublished
}

// IsPublished reports whether the meeting is visible through share links.
func (m Meeting) IsPublished() bool {
	return m.Status == StatusPublished
}

// VisibleTo reports whether role may see the meeting in listings.
func (m Meeting) VisibleTo(role ViewerRole) bool {
	if NormalizeRole(role) == RoleAdmin {
		return true
	}
	return m.IsPublished()
}

// Recipients returns participant addresses in creation order.
func (m Meeting) Recipients() []string {
	out := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		if strings.TrimSpace(p.Email) == "" {
			continue
		}
		out = append(out, p.Email)
	}
	return out
}

// TaskProgress returns completed and total task counts.
func (m Meeting) TaskProgress() (int, int) {
	done := 0
	for _, task := range m.Tasks {
		if task.Status == TaskCompleted {
			done++
		}
	}
	return done, len(m.Tasks)
}

// CompleteAnalysis applies extracted intelligence and the mind map as one update.
// Nothing is changed when an error is returned. The status never moves backward.
func (m *Meeting) CompleteAnalysis(intel Intelligence, mindMap *MindMapNode, newID func() string) error {
	if strings.TrimSpace(intel.Summary) == "" {
		return ErrEmptyIntelligence
	}

	tasks := make([]Task, 0, len(intel.Tasks))
	seen := make(map[string]struct{}, len(intel.Tasks))
	for _, extracted := range intel.Tasks {
		id := ""
		if newID != nil {
			id = strings.TrimSpace(newID())
		}
		if id == "" {
			return ErrInvalidID
		}
		if _, dup := seen[id]; dup {
			return ErrDuplicateTaskID
		}
		seen[id] = struct{}{}
		tasks = append(tasks, Task{
			ID:       id,
			Title:    strings.TrimSpace(extracted.Title),
			Assignee: extracted.Assignee,
			Status:   TaskPending,
		})
	}

	tree := PlaceholderMindMap()
	if mindMap != nil && strings.TrimSpace(mindMap.Name) != "" {
		truncated := mindMap.Truncated(MaxMindMapDepth)
		tree = &truncated
	}

	shifts := slices.Clone(intel.StrategyShifts)
	if shifts == nil {
		shifts = []string{}
	}

	m.Transcript = intel.Transcript
	m.Summary = intel.Summary
	m.Conclusion = intel.Conclusion
	m.StrategyShifts = shifts
	m.Tasks = tasks
	m.MindMap = tree
	m.Status = atLeast(m.Status, StatusAnalyzed)
	return nil
}

// ToggleTask flips the status of one task. It reports false when no task matches.
func (m *Meeting) ToggleTask(taskID string) bool {
	taskID = strings.TrimSpace(taskID)
	for idx := range m.Tasks {
		if m.Tasks[idx].ID != taskID {
			continue
		}
		m.Tasks[idx].Status = m.Tasks[idx].Status.Toggled()
		return true
	}
	return false
}

// Publish marks an analyzed meeting as published. Publishing again is a no-op on state.
func (m *Meeting) Publish() error {
	if !m.IsAnalyzed() {
		return ErrNotAnalyzed
	}
	m.Status = StatusPublished
	return nil
}

// RecordAccess appends an access log entry for a published meeting.
func (m *Meeting) RecordAccess(role ViewerRole, now time.Time) (AccessLogEntry, error) {
	if !m.IsPublished() {
		return AccessLogEntry{}, ErrNotPublished
	}
	role = NormalizeRole(role)
	if !IsValidRole(role) {
		return AccessLogEntry{}, ErrInvalidRole
	}
	ts := now.UTC()
	if n := len(m.AccessLogs); n > 0 && ts.Before(m.AccessLogs[n-1].Timestamp) {
		ts = m.AccessLogs[n-1].Timestamp
	}
	entry := AccessLogEntry{Timestamp: ts, ViewerRole: role}
	m.AccessLogs = append(m.AccessLogs, entry)
	return entry, nil
}
