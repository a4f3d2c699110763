package domain

import (
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle tag stored on a meeting record.
type Status string

// Status values in transition order. Transitions only move forward.
const (
	StatusDraft     Status = "draft"
	StatusAnalyzed  Status = "analyzed"
	StatusPublished Status = "published"
)

var statusRank = map[Status]int{
	StatusDraft:     0,
	StatusAnalyzed:  1,
	StatusPublished: 2,
}

// NormalizeStatus canonicalizes a raw status value.
func NormalizeStatus(status Status) Status {
	return Status(strings.TrimSpace(strings.ToLower(string(status))))
}

// IsValidStatus reports whether status is a known lifecycle tag.
func IsValidStatus(status Status) bool {
	_, ok := statusRank[NormalizeStatus(status)]
	return ok
}

// InferStatus derives the tag for records persisted before analysis was tracked explicitly.
// A draft (or untagged) record with a summary is treated as analyzed.
func InferStatus(stored Status, summary string) Status {
	stored = NormalizeStatus(stored)
	switch stored {
	case StatusPublished, StatusAnalyzed:
		return stored
	}
	if strings.TrimSpace(summary) != "" {
		return StatusAnalyzed
	}
	return StatusDraft
}

// atLeast keeps the later of two statuses so no transition moves backward.
func atLeast(current, floor Status) Status {
	if statusRank[current] >= statusRank[floor] {
		return current
	}
	return floor
}

// ViewerRole is the coarse role flag attached to callers and access-log entries.
type ViewerRole string

const (
	RoleAdmin  ViewerRole = "ADMIN"
	RoleMember ViewerRole = "MEMBER"
)

var validRoles = []ViewerRole{RoleAdmin, RoleMember}

// NormalizeRole canonicalizes a raw role value.
func NormalizeRole(role ViewerRole) ViewerRole {
	return ViewerRole(strings.TrimSpace(strings.ToUpper(string(role))))
}

// IsValidRole reports whether role is supported.
func IsValidRole(role ViewerRole) bool {
	return slices.Contains(validRoles, NormalizeRole(role))
}

// AccessLogEntry records one view of a published meeting.
type AccessLogEntry struct {
	Timestamp  time.Time
	ViewerRole ViewerRole
}
