package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hylla/syncnotes/internal/adapters/server/common"
)

type stubMeetings struct {
	common.MeetingService
	opened  string
	listErr error
}

func (s *stubMeetings) ListMeetings(context.Context) ([]common.MeetingSummary, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []common.MeetingSummary{{ID: "m1"}}, nil
}

// recordingLogger keeps debug messages for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(msg any, keyvals ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, keyvals...)...))
}
func (l *recordingLogger) Info(any, ...any) {}
func (l *recordingLogger) Warn(any, ...any) {}
func (l *recordingLogger) Error(any, ...any) {}

func (s *stubMeetings) OpenShareLink(_ context.Context, link string) (common.MeetingDetail, error) {
	s.opened = link
	return common.MeetingDetail{ID: link, Status: "published"}, nil
}

func TestNewHandlerRequiresMeetings(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected error without meetings dependency")
	}
}

func TestNewHandlerRoutes(t *testing.T) {
	stub := &stubMeetings{}
	handler, cfg, err := NewHandler(Config{APIEndpoint: "api/v1/"}, Dependencies{Meetings: stub})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.HTTPBind != defaultBindAddress {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	for _, tc := range []struct {
		target string
		want   string
	}{
		{"/healthz", `"status":"ok"`},
		{"/api/v1/meetings", `"id":"m1"`},
		{"/share?meetingId=m9", `"id":"m9"`},
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200 body=%s", tc.target, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s body = %s, want %s", tc.target, rec.Body.String(), tc.want)
		}
	}
	if stub.opened != "m9" {
		t.Fatalf("share route opened %q, want m9", stub.opened)
	}
}

func TestNormalizeConfigRejectsCollisions(t *testing.T) {
	if _, err := normalizeConfig(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}); err == nil {
		t.Fatal("expected error for identical endpoints")
	}
	if _, err := normalizeConfig(Config{APIEndpoint: "/share"}); err == nil {
		t.Fatal("expected error for reserved endpoint")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Meetings: &stubMeetings{}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestReadinessReflectsMeetingStore(t *testing.T) {
	stub := &stubMeetings{}
	handler, _, err := NewHandler(Config{}, Dependencies{Meetings: stub})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"meetings":1`) {
		t.Fatalf("readyz = %d %s, want 200 with one meeting", rec.Code, rec.Body.String())
	}

	stub.listErr = errors.New("database is locked")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "database is locked") {
		t.Fatalf("readyz = %d %s, want 503 with store error", rec.Code, rec.Body.String())
	}
}

func TestNewHandlerLogsRequests(t *testing.T) {
	logger := &recordingLogger{}
	handler, _, err := NewHandler(Config{}, Dependencies{Meetings: &stubMeetings{}, Logger: logger})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 1 {
		t.Fatalf("expected one request log line, got %#v", logger.lines)
	}
	for _, want := range []string{"/api/v1/nope", "404"} {
		if !strings.Contains(logger.lines[0], want) {
			t.Fatalf("log line %q missing %q", logger.lines[0], want)
		}
	}
}

func TestRunReportsBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer busy.Close()
	err = Run(context.Background(), Config{HTTPBind: busy.Addr().String()}, Dependencies{Meetings: &stubMeetings{}})
	if err == nil || !strings.Contains(err.Error(), "listen on") {
		t.Fatalf("expected bind failure, got %v", err)
	}
}
