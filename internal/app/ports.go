package app

import (
	"context"

	"github.com/hylla/syncnotes/internal/domain"
)

// KeyValueStore persists opaque values under string keys.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists.
	Get(context.Context, string) ([]byte, bool, error)
	Put(context.Context, string, []byte) error
}

// Part is one input part of an inference request: either binary data with a media type, or text.
type Part struct {
	Data     []byte
	MIMEType string
	Text     string
}

// InferenceRequest describes one model call.
type InferenceRequest struct {
	Model             string
	Parts             []Part
	ResponseSchema    *Schema
	SystemInstruction string
}

// InferenceClient issues model calls and returns the raw text reply.
type InferenceClient interface {
	Generate(context.Context, InferenceRequest) (string, error)
}

// ReportDeliverer dispatches a published meeting report to recipients.
type ReportDeliverer interface {
	DeliverReport(ctx context.Context, meeting domain.Meeting, recipients []string, shareLink string) error
}

// Logger is the structured logger used by the service layer.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}
