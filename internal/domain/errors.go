package domain

import "errors"

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidAgenda      = errors.New("invalid agenda")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidTime        = errors.New("invalid time")
	ErrNoParticipants     = errors.New("at least one participant is required")
	ErrInvalidRole        = errors.New("invalid viewer role")
	ErrInvalidStatus      = errors.New("invalid meeting status")
	ErrNotAnalyzed        = errors.New("meeting has not been analyzed")
	ErrNotPublished       = errors.New("meeting is not published")
	ErrEmptyIntelligence  = errors.New("analysis produced no summary")
	ErrDuplicateTaskID    = errors.New("duplicate task id")
	ErrInvalidMindMapNode = errors.New("invalid mind map node")
)

// IsValidationFailure reports whether err stems from rejected input rather than a runtime failure.
func IsValidationFailure(err error) bool {
	for _, target := range []error{
		ErrInvalidID,
		ErrInvalidTitle,
		ErrInvalidAgenda,
		ErrInvalidDate,
		ErrInvalidTime,
		ErrNoParticipants,
		ErrInvalidRole,
		ErrInvalidStatus,
		ErrNotAnalyzed,
		ErrNotPublished,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
