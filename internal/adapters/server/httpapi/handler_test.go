package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hylla/syncnotes/internal/adapters/server/common"
	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
)

// stubMeetingService records requests and returns configured fixtures.
type stubMeetingService struct {
	meetings  []common.MeetingSummary
	detail    common.MeetingDetail
	toggle    common.ToggleTaskResult
	publish   common.PublishResult
	answer    common.AskResult
	err       error
	lastRole  domain.ViewerRole
	lastID    string
	lastLink  string
	shareRole domain.ViewerRole
	lastAudio common.ProcessAudioRequest
	lastTask  common.ToggleTaskRequest
	lastAsk   common.AskRequest
	created   common.CreateMeetingRequest
}

func (s *stubMeetingService) record(ctx context.Context) {
	s.lastRole = app.ViewerRoleFromContext(ctx)
}

func (s *stubMeetingService) ListMeetings(ctx context.Context) ([]common.MeetingSummary, error) {
	s.record(ctx)
	return s.meetings, s.err
}

func (s *stubMeetingService) GetMeeting(ctx context.Context, id string) (common.MeetingDetail, error) {
	s.record(ctx)
	s.lastID = id
	return s.detail, s.err
}

func (s *stubMeetingService) CreateMeeting(ctx context.Context, req common.CreateMeetingRequest) (common.MeetingDetail, error) {
	s.record(ctx)
	s.created = req
	return s.detail, s.err
}

func (s *stubMeetingService) ProcessAudio(ctx context.Context, req common.ProcessAudioRequest) (common.MeetingDetail, error) {
	s.record(ctx)
	s.lastAudio = req
	return s.detail, s.err
}

func (s *stubMeetingService) ToggleTask(ctx context.Context, req common.ToggleTaskRequest) (common.ToggleTaskResult, error) {
	s.record(ctx)
	s.lastTask = req
	return s.toggle, s.err
}

func (s *stubMeetingService) PublishMeeting(ctx context.Context, id string) (common.PublishResult, error) {
	s.record(ctx)
	s.lastID = id
	return s.publish, s.err
}

func (s *stubMeetingService) AskMeeting(ctx context.Context, req common.AskRequest) (common.AskResult, error) {
	s.record(ctx)
	s.lastAsk = req
	return s.answer, s.err
}

func (s *stubMeetingService) OpenShareLink(ctx context.Context, link string) (common.MeetingDetail, error) {
	s.record(ctx)
	s.lastLink = link
	s.shareRole = app.ShareVisitorRole(ctx)
	return s.detail, s.err
}

func serve(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

func TestHandlerListMeetingsPassesRole(t *testing.T) {
	stub := &stubMeetingService{meetings: []common.MeetingSummary{{ID: "m1", Title: "Sync", Status: "published"}}}
	rec := serve(t, NewHandler(stub), http.MethodGet, "/meetings", "", map[string]string{common.RoleHeader: "member"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 body=%s", rec.Code, rec.Body.String())
	}
	if stub.lastRole != domain.RoleMember {
		t.Fatalf("role = %q, want MEMBER", stub.lastRole)
	}
	got := decodeBody[map[string][]common.MeetingSummary](t, rec)
	if diff := cmp.Diff(stub.meetings, got["meetings"]); diff != "" {
		t.Fatalf("meetings mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerRejectsUnknownRole(t *testing.T) {
	stub := &stubMeetingService{}
	rec := serve(t, NewHandler(stub), http.MethodGet, "/meetings", "", map[string]string{common.RoleHeader: "owner"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerCreateMeeting(t *testing.T) {
	stub := &stubMeetingService{detail: common.MeetingDetail{ID: "m1", Status: "draft"}}
	body := `{"title":"Sync","agenda":"Plan","date":"2026-03-01","time":"09:00","participants":["Ada"]}`
	rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 body=%s", rec.Code, rec.Body.String())
	}
	want := common.CreateMeetingRequest{Title: "Sync", Agenda: "Plan", Date: "2026-03-01", Time: "09:00", Participants: []string{"Ada"}}
	if diff := cmp.Diff(want, stub.created); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	if stub.lastRole != domain.RoleAdmin {
		t.Fatalf("missing role header should act as admin, got %q", stub.lastRole)
	}
}

func TestHandlerCreateMeetingRejectsUnknownFields(t *testing.T) {
	stub := &stubMeetingService{}
	rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings", `{"title":"x","owner":"y"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerProcessAudioUsesContentType(t *testing.T) {
	stub := &stubMeetingService{detail: common.MeetingDetail{ID: "m1", Status: "analyzed"}}
	rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings/m1/audio", "RIFFDATA", map[string]string{"Content-Type": "audio/wav; codecs=1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 body=%s", rec.Code, rec.Body.String())
	}
	if stub.lastAudio.MeetingID != "m1" || stub.lastAudio.MIMEType != "audio/wav" || string(stub.lastAudio.Data) != "RIFFDATA" {
		t.Fatalf("unexpected audio request %#v", stub.lastAudio)
	}
}

func TestHandlerToggleTaskRoute(t *testing.T) {
	stub := &stubMeetingService{toggle: common.ToggleTaskResult{Toggled: true}}
	rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings/m1/tasks/t9/toggle", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastTask != (common.ToggleTaskRequest{MeetingID: "m1", TaskID: "t9"}) {
		t.Fatalf("unexpected toggle request %#v", stub.lastTask)
	}
}

func TestHandlerAskBindsMeetingID(t *testing.T) {
	stub := &stubMeetingService{answer: common.AskResult{MeetingID: "m1", Answer: "March."}}
	rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings/m1/ask", `{"question":"When?"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastAsk != (common.AskRequest{MeetingID: "m1", Question: "When?"}) {
		t.Fatalf("unexpected ask request %#v", stub.lastAsk)
	}
	if got := decodeBody[common.AskResult](t, rec); got.Answer != "March." {
		t.Fatalf("unexpected answer %#v", got)
	}
}

func TestHandlerShareRoute(t *testing.T) {
	stub := &stubMeetingService{detail: common.MeetingDetail{ID: "m1", Status: "published"}}
	rec := serve(t, NewHandler(stub), http.MethodGet, "/share?meetingId=m1", "", map[string]string{common.RoleHeader: "MEMBER"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.lastLink != "m1" {
		t.Fatalf("unexpected link %q", stub.lastLink)
	}

	rec = serve(t, NewHandler(stub), http.MethodGet, "/share?meetingId=m1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if stub.shareRole != domain.RoleMember {
		t.Fatalf("share visit without role header recorded as %q, want MEMBER", stub.shareRole)
	}
	rec = serve(t, NewHandler(stub), http.MethodGet, "/share?meetingId=m1", "", map[string]string{common.RoleHeader: "ADMIN"})
	if rec.Code != http.StatusOK || stub.shareRole != domain.RoleAdmin {
		t.Fatalf("explicit admin share visit: status = %d role = %q", rec.Code, stub.shareRole)
	}

	rec = serve(t, NewHandler(stub), http.MethodGet, "/share", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing meetingId", rec.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		api  string
	}{
		{errors.Join(common.ErrNotFound, app.ErrNotFound), http.StatusNotFound, "not_found"},
		{errors.Join(common.ErrForbidden, app.ErrForbidden), http.StatusForbidden, "forbidden"},
		{errors.Join(common.ErrConflict, domain.ErrNotAnalyzed), http.StatusConflict, "conflict"},
		{common.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{errors.Join(common.ErrUpstream, app.ErrTimeout), http.StatusBadGateway, "upstream_failed"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.api, func(t *testing.T) {
			stub := &stubMeetingService{err: tc.err}
			rec := serve(t, NewHandler(stub), http.MethodPost, "/meetings/m1/publish", "", nil)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
			if got := decodeBody[ErrorEnvelope](t, rec); got.Error.Code != tc.api {
				t.Fatalf("code = %q, want %q", got.Error.Code, tc.api)
			}
		})
	}
}

func TestHandlerRoutingFailures(t *testing.T) {
	stub := &stubMeetingService{}
	h := NewHandler(stub)
	if rec := serve(t, h, http.MethodDelete, "/meetings", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec := serve(t, h, http.MethodGet, "/meetings/m1/publish", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	for _, target := range []string{"/nope", "/meetings/m1/unknown", "/meetings//audio", "/meetings/m1/tasks/t1"} {
		if rec := serve(t, h, http.MethodPost, target, "", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", target, rec.Code)
		}
	}
}
