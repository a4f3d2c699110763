// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
)

// RoleHeader carries the caller role on HTTP requests.
const RoleHeader = "X-SyncNotes-Role"

// ErrInvalidRequest and related errors classify failures for transport status mapping.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrUpstream       = errors.New("ai service failure")
)

// ParseRole resolves a transport-supplied role. Blank means admin; unknown values are rejected.
func ParseRole(raw string) (domain.ViewerRole, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.RoleAdmin, nil
	}
	role := domain.NormalizeRole(domain.ViewerRole(raw))
	if !domain.IsValidRole(role) {
		return "", errors.Join(ErrInvalidRequest, domain.ErrInvalidRole)
	}
	return role, nil
}

// WithRequestRole attaches a transport-supplied role to ctx. A blank role leaves ctx untouched so
// the app layer applies its own default for the operation.
func WithRequestRole(ctx context.Context, raw string) (context.Context, error) {
	if strings.TrimSpace(raw) == "" {
		return ctx, nil
	}
	role, err := ParseRole(raw)
	if err != nil {
		return ctx, err
	}
	return app.WithViewerRole(ctx, role), nil
}

// MeetingService is the meeting surface shared by the HTTP and MCP transports.
type MeetingService interface {
	ListMeetings(context.Context) ([]MeetingSummary, error)
	GetMeeting(context.Context, string) (MeetingDetail, error)
	CreateMeeting(context.Context, CreateMeetingRequest) (MeetingDetail, error)
	ProcessAudio(context.Context, ProcessAudioRequest) (MeetingDetail, error)
	ToggleTask(context.Context, ToggleTaskRequest) (ToggleTaskResult, error)
	PublishMeeting(context.Context, string) (PublishResult, error)
	AskMeeting(context.Context, AskRequest) (AskResult, error)
	OpenShareLink(context.Context, string) (MeetingDetail, error)
}

type CreateMeetingRequest struct {
	Title        string   `json:"title"`
	Agenda       string   `json:"agenda"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Participants []string `json:"participants"`
}

type ProcessAudioRequest struct {
	MeetingID string
	Data      []byte
	MIMEType  string
}

type ToggleTaskRequest struct {
	MeetingID string
	TaskID    string
}

type AskRequest struct {
	MeetingID string `json:"-"`
	Question  string `json:"question"`
}

// MeetingSummary is one list row.
type MeetingSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Status         string    `json:"status"`
	Participants   int       `json:"participants"`
	TasksDone      int       `json:"tasks_done"`
	TasksTotal     int       `json:"tasks_total"`
	CreatedAt      time.Time `json:"created_at"`
	SummaryPreview string    `json:"summary_preview,omitempty"`
}

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Task struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
	Status   string `json:"status"`
}

type MindMapNode struct {
	Name     string        `json:"name"`
	Children []MindMapNode `json:"children,omitempty"`
}

type AccessLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	ViewerRole string    `json:"viewer_role"`
}

// MeetingDetail is the full transport view of one meeting.
type MeetingDetail struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Agenda         string           `json:"agenda"`
	Date           string           `json:"date"`
	Time           string           `json:"time"`
	Status         string           `json:"status"`
	Participants   []Participant    `json:"participants"`
	Transcript     string           `json:"transcript,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Conclusion     string           `json:"conclusion,omitempty"`
	StrategyShifts []string         `json:"strategy_shifts,omitempty"`
	Tasks          []Task           `json:"tasks,omitempty"`
	MindMap        *MindMapNode     `json:"mind_map,omitempty"`
	AccessLogs     []AccessLogEntry `json:"access_logs,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	ShareLink      string           `json:"share_link,omitempty"`
}

type ToggleTaskResult struct {
	Toggled bool          `json:"toggled"`
	Meeting MeetingDetail `json:"meeting"`
}

// PublishResult reports a publish and whether the follow-up report went out.
type PublishResult struct {
	Meeting     MeetingDetail `json:"meeting"`
	ShareLink   string        `json:"share_link"`
	Notified    bool          `json:"notified"`
	NotifyError string        `json:"notify_error,omitempty"`
}

type AskResult struct {
	MeetingID string `json:"meeting_id"`
	Answer    string `json:"answer"`
}
