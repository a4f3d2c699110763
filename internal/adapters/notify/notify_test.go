package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
	"github.com/wneessen/go-mail"
)

var (
	_ app.ReportDeliverer = (*SMTPDeliverer)(nil)
	_ app.ReportDeliverer = (*HTTPDeliverer)(nil)
)

func publishedMeeting() domain.Meeting {
	return domain.Meeting{
		ID:     "m1",
		Title:  "Q3 Planning",
		Agenda: "roadmap",
		Date:   "2026-03-02",
		Time:   "10:00",
		Tasks:  []domain.Task{{ID: "t1", Title: "Draft JD", Assignee: "Alex", Status: domain.TaskPending}},
		Status: domain.StatusPublished,
	}
}

// capturedMail is one message handed to the transport, rendered to wire form.
type capturedMail struct {
	From string
	To   []string
	Raw  string
}

func captureSends(t *testing.T, d *SMTPDeliverer) *[]capturedMail {
	t.Helper()
	var sent []capturedMail
	d.send = func(_ context.Context, msg *mail.Msg) error {
		from, err := msg.GetSender(false)
		if err != nil {
			t.Fatalf("GetSender() error = %v", err)
		}
		to, err := msg.GetRecipients()
		if err != nil {
			t.Fatalf("GetRecipients() error = %v", err)
		}
		var raw bytes.Buffer
		if _, err := msg.WriteTo(&raw); err != nil {
			t.Fatalf("WriteTo() error = %v", err)
		}
		sent = append(sent, capturedMail{From: from, To: to, Raw: raw.String()})
		return nil
	}
	return &sent
}

func TestSMTPDelivererSendsReport(t *testing.T) {
	d := NewSMTPDeliverer(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "pw"}, log.New(io.Discard))
	sent := captureSends(t, d)
	recipients := []string{"alex@company.com", "riya@company.com"}
	if err := d.DeliverReport(context.Background(), publishedMeeting(), recipients, "https://x/?meetingId=m1"); err != nil {
		t.Fatalf("DeliverReport() error = %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("expected one message, got %d", len(*sent))
	}
	got := (*sent)[0]
	if got.From != "bot@example.com" {
		t.Fatalf("unexpected sender %q", got.From)
	}
	if diff := cmp.Diff(recipients, got.To); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
	for _, want := range []string{
		"Subject: Published Meeting: Q3 Planning",
		"View it here: https://x/?meetingId=m1",
		"report-m1.txt",
	} {
		if !strings.Contains(got.Raw, want) {
			t.Fatalf("message missing %q:\n%s", want, got.Raw)
		}
	}
}

func TestSMTPDelivererEncodesSubject(t *testing.T) {
	d := NewSMTPDeliverer(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", Password: "pw"}, log.New(io.Discard))
	sent := captureSends(t, d)

	for _, title := range []string{"Café Roadmap", "x\r\nBcc: attacker@evil.example"} {
		meeting := publishedMeeting()
		meeting.Title = title
		if err := d.DeliverReport(context.Background(), meeting, []string{"alex@company.com"}, "link"); err != nil {
			t.Fatalf("DeliverReport(%q) error = %v", title, err)
		}
	}
	if len(*sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(*sent))
	}

	accented := (*sent)[0].Raw
	if strings.Contains(accented, "Café") || !strings.Contains(strings.ToLower(accented), "subject: =?utf-8?") {
		t.Fatalf("non-ASCII subject was not encoded:\n%s", accented)
	}

	injected := (*sent)[1].Raw
	headers, _, _ := strings.Cut(injected, "\r\n\r\n")
	for _, line := range strings.Split(headers, "\r\n") {
		if strings.HasPrefix(strings.ToLower(line), "bcc:") {
			t.Fatalf("title injected a header line %q:\n%s", line, injected)
		}
	}
	if diff := cmp.Diff([]string{"alex@company.com"}, (*sent)[1].To); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
}

// TestSMTPDelivererSkipsWithoutCredentials verifies missing credentials are a warning, not an error.
func TestSMTPDelivererSkipsWithoutCredentials(t *testing.T) {
	d := NewSMTPDeliverer(SMTPConfig{Host: "smtp.example.com"}, log.New(io.Discard))
	sent := captureSends(t, d)
	if err := d.DeliverReport(context.Background(), publishedMeeting(), []string{"alex@company.com"}, "link"); err != nil {
		t.Fatalf("DeliverReport() error = %v", err)
	}
	if len(*sent) != 0 {
		t.Fatal("expected no mail without credentials")
	}
}

func TestSMTPDelivererWrapsSendFailure(t *testing.T) {
	boom := errors.New("relay denied")
	d := NewSMTPDeliverer(SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "u@example.com", Password: "p"}, log.New(io.Discard))
	d.send = func(context.Context, *mail.Msg) error { return boom }
	err := d.DeliverReport(context.Background(), publishedMeeting(), []string{"alex@company.com"}, "link")
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "smtp.example.com:2525") {
		t.Fatalf("expected wrapped send failure, got %v", err)
	}
	if err := d.DeliverReport(context.Background(), publishedMeeting(), nil, "link"); !errors.Is(err, app.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestHTTPDelivererPostsReportRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send-report" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	d := NewHTTPDeliverer(server.URL+"/send-report", server.Client())
	if err := d.DeliverReport(context.Background(), publishedMeeting(), []string{"alex@company.com"}, "https://x/?meetingId=m1"); err != nil {
		t.Fatalf("DeliverReport() error = %v", err)
	}
	if got["link"] != "https://x/?meetingId=m1" {
		t.Fatalf("unexpected link %#v", got["link"])
	}
	meeting := got["meeting"].(map[string]any)
	if meeting["title"] != "Q3 Planning" || meeting["status"] != "published" {
		t.Fatalf("unexpected meeting payload %#v", meeting)
	}
	if diff := cmp.Diff([]any{"alex@company.com"}, got["recipients"]); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPDelivererReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Failed to send email"}`)
	}))
	defer server.Close()

	d := NewHTTPDeliverer(server.URL, nil)
	err := d.DeliverReport(context.Background(), publishedMeeting(), []string{"alex@company.com"}, "link")
	if err == nil || !strings.Contains(err.Error(), "Failed to send email") {
		t.Fatalf("expected server error detail, got %v", err)
	}
}
