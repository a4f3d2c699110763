// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/syncnotes/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// maxAudioBytes bounds one uploaded recording.
const maxAudioBytes int64 = 64 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1` and the share route.
type Handler struct {
	meetings common.MeetingService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func NewHandler(meetings common.MeetingService) *Handler {
	return &Handler{meetings: meetings}
}

// ServeHTTP routes one API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.meetings == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "meeting service is not configured",
		})
		return
	}
	ctx, err := common.WithRequestRole(r.Context(), r.Header.Get(common.RoleHeader))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	r = r.WithContext(ctx)

	path := normalizePath(r.URL.Path)
	switch {
	case path == "meetings":
		switch r.Method {
		case http.MethodGet:
			h.handleListMeetings(w, r)
		case http.MethodPost:
			h.handleCreateMeeting(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
		return
	case path == "share":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleOpenShare(w, r)
		return
	}

	route, ok := resolveMeetingRoute(path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}
	switch route.action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleGetMeeting(w, r, route.meetingID)
	case "audio", "publish", "ask", "toggle":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		switch route.action {
		case "audio":
			h.handleProcessAudio(w, r, route.meetingID)
		case "publish":
			h.handlePublish(w, r, route.meetingID)
		case "ask":
			h.handleAsk(w, r, route.meetingID)
		case "toggle":
			h.handleToggleTask(w, r, route.meetingID, route.taskID)
		}
	}
}

// handleListMeetings serves GET `/meetings`.
func (h *Handler) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.ListMeetings(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"meetings": meetings,
	})
}

// handleCreateMeeting serves POST `/meetings`.
func (h *Handler) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req common.CreateMeetingRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	meeting, err := h.meetings.CreateMeeting(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

// handleGetMeeting serves GET `/meetings/{id}`.
func (h *Handler) handleGetMeeting(w http.ResponseWriter, r *http.Request, meetingID string) {
	meeting, err := h.meetings.GetMeeting(r.Context(), meetingID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// handleProcessAudio serves POST `/meetings/{id}/audio` with the raw recording as body.
func (h *Handler) handleProcessAudio(w http.ResponseWriter, r *http.Request, meetingID string) {
	reader := http.MaxBytesReader(w, r.Body, maxAudioBytes)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		writeErrorFrom(w, fmt.Errorf("read audio body: %w", errors.Join(common.ErrInvalidRequest, err)))
		return
	}
	mimeType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
	meeting, err := h.meetings.ProcessAudio(r.Context(), common.ProcessAudioRequest{
		MeetingID: meetingID,
		Data:      data,
		MIMEType:  mimeType,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// handleToggleTask serves POST `/meetings/{id}/tasks/{taskID}/toggle`.
func (h *Handler) handleToggleTask(w http.ResponseWriter, r *http.Request, meetingID, taskID string) {
	result, err := h.meetings.ToggleTask(r.Context(), common.ToggleTaskRequest{
		MeetingID: meetingID,
		TaskID:    taskID,
	})
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePublish serves POST `/meetings/{id}/publish`.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request, meetingID string) {
	result, err := h.meetings.PublishMeeting(r.Context(), meetingID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAsk serves POST `/meetings/{id}/ask`.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request, meetingID string) {
	var req common.AskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.MeetingID = meetingID
	result, err := h.meetings.AskMeeting(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleOpenShare serves GET `/share?meetingId=`.
func (h *Handler) handleOpenShare(w http.ResponseWriter, r *http.Request) {
	meetingID := strings.TrimSpace(r.URL.Query().Get("meetingId"))
	if meetingID == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "meetingId is required",
		})
		return
	}
	meeting, err := h.meetings.OpenShareLink(r.Context(), meetingID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

type meetingRoute struct {
	meetingID string
	taskID    string
	action    string
}

// resolveMeetingRoute parses `meetings/{id}[/action]` and `meetings/{id}/tasks/{taskID}/toggle`.
func resolveMeetingRoute(path string) (meetingRoute, bool) {
	rest, ok := strings.CutPrefix(path, "meetings/")
	if !ok {
		return meetingRoute{}, false
	}
	parts := strings.Split(rest, "/")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return meetingRoute{}, false
		}
	}
	route := meetingRoute{meetingID: parts[0]}
	switch {
	case len(parts) == 1:
		return route, true
	case len(parts) == 2 && (parts[1] == "audio" || parts[1] == "publish" || parts[1] == "ask"):
		route.action = parts[1]
		return route, true
	case len(parts) == 4 && parts[1] == "tasks" && parts[3] == "toggle":
		route.taskID = parts[2]
		route.action = "toggle"
		return route, true
	default:
		return meetingRoute{}, false
	}
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, APIError{
			Code:    "forbidden",
			Message: err.Error(),
			Hint:    "Send " + common.RoleHeader + ": ADMIN for this operation.",
		})
	case errors.Is(err, common.ErrConflict):
		writeJSONError(w, http.StatusConflict, APIError{
			Code:    "conflict",
			Message: err.Error(),
			Hint:    "Upload the meeting recording before publishing or asking questions.",
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUpstream):
		writeJSONError(w, http.StatusBadGateway, APIError{
			Code:    "upstream_failed",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
