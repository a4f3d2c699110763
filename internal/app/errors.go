package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/hylla/syncnotes/internal/domain"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("operation not permitted for viewer role")
	ErrTransport        = errors.New("ai service unreachable")
	ErrNotConfigured    = errors.New("ai client is not configured")
	ErrTimeout          = errors.New("ai request timed out")
	ErrRetriesExhausted = errors.New("ai request failed after retries")
	ErrSchemaParse      = errors.New("response did not match requested shape")
	ErrNotification     = errors.New("report delivery failed")
	ErrNoRecipients     = errors.New("no report recipients")
	ErrInvalidAudio     = errors.New("audio payload and media type are required")
	ErrEmptyQuestion    = errors.New("question is required")
	ErrInvalidShareLink = errors.New("invalid share link")
)

// TimeoutError reports one attempt that lost the deadline race.
type TimeoutError struct {
	Operation string
	Attempt   int
	Deadline  time.Duration
	Elapsed   time.Duration
}

// Error renders the timeout with elapsed-time detail.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s attempt %d timed out after %s (deadline %s)", e.Operation, e.Attempt, e.Elapsed.Round(time.Millisecond), e.Deadline)
}

// Unwrap lets errors.Is match ErrTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// IsValidationFailure reports whether err was rejected before any external call.
func IsValidationFailure(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsValidationFailure(err) {
		return true
	}
	return errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrInvalidAudio) ||
		errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrInvalidShareLink)
}
