package domain

import "strings"

// TaskStatus is the completion flag of an extracted action item.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is an action item extracted from a meeting.
type Task struct {
	ID       string
	Title    string
	Assignee string
	Status   TaskStatus
}

// ExtractedTask is a task as returned by analysis, before it is assigned an id.
type ExtractedTask struct {
	Title    string
	Assignee string
}

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskCompleted {
		return TaskPending
	}
	return TaskCompleted
}

// NormalizeTaskStatus maps unknown or empty values to pending.
func NormalizeTaskStatus(status TaskStatus) TaskStatus {
	if TaskStatus(strings.TrimSpace(strings.ToLower(string(status)))) == TaskCompleted {
		return TaskCompleted
	}
	return TaskPending
}
