package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sequenceIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newDraftMeeting(t *testing.T) Meeting {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	m, err := NewMeeting(MeetingInput{
		ID:               "m1",
		Title:            " Q3 Planning ",
		Agenda:           "roadmap",
		Date:             "2026-03-02",
		Time:             "09:30",
		ParticipantNames: []string{"Alex Kim, Riya", " Aman "},
	}, sequenceIDs("p"), now)
	if err != nil {
		t.Fatalf("NewMeeting() error = %v", err)
	}
	return m
}

func sampleIntelligence() Intelligence {
	return Intelligence{
		Transcript:     "T",
		Summary:        "S",
		Conclusion:     "C",
		StrategyShifts: []string{"a", "b", "c"},
		Tasks:          []ExtractedTask{{Title: "X", Assignee: "Alex"}},
	}
}

// TestNewMeetingDerivesParticipants verifies names are split and emails derived.
func TestNewMeetingDerivesParticipants(t *testing.T) {
	m := newDraftMeeting(t)
	if m.Title != "Q3 Planning" {
		t.Fatalf("unexpected title %q", m.Title)
	}
	if m.Status != StatusDraft {
		t.Fatalf("expected draft status, got %q", m.Status)
	}
	want := []Participant{
		{ID: "p-1", Name: "Alex Kim", Email: "alex.kim@company.com"},
		{ID: "p-2", Name: "Riya", Email: "riya@company.com"},
		{ID: "p-3", Name: "Aman", Email: "aman@company.com"},
	}
	if diff := cmp.Diff(want, m.Participants); diff != "" {
		t.Fatalf("participants mismatch (-want +got):\n%s", diff)
	}
	if m.Summary != "" || len(m.Tasks) != 0 || m.MindMap != nil {
		t.Fatalf("expected empty derived fields, got %#v", m)
	}
}

func TestNewMeetingValidation(t *testing.T) {
	now := time.Now()
	valid := MeetingInput{ID: "m1", Title: "t", Agenda: "a", Date: "2026-01-02", Time: "10:00", ParticipantNames: []string{"Alex"}}
	cases := []struct {
		name   string
		mutate func(*MeetingInput)
		want   error
	}{
		{name: "id", mutate: func(in *MeetingInput) { in.ID = " " }, want: ErrInvalidID},
		{name: "title", mutate: func(in *MeetingInput) { in.Title = "" }, want: ErrInvalidTitle},
		{name: "title line break", mutate: func(in *MeetingInput) { in.Title = "x\r\nBcc: a@evil.example" }, want: ErrInvalidTitle},
		{name: "agenda", mutate: func(in *MeetingInput) { in.Agenda = "  " }, want: ErrInvalidAgenda},
		{name: "date", mutate: func(in *MeetingInput) { in.Date = "02/01/2026" }, want: ErrInvalidDate},
		{name: "time", mutate: func(in *MeetingInput) { in.Time = "" }, want: ErrInvalidTime},
		{name: "participants", mutate: func(in *MeetingInput) { in.ParticipantNames = []string{" , "} }, want: ErrNoParticipants},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := NewMeeting(in, sequenceIDs("p"), now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidationFailure(err) {
				t.Fatalf("expected validation failure for %v", err)
			}
		})
	}
}

func TestDeriveEmail(t *testing.T) {
	if got := DeriveEmail("  Mary   Jane\tWatson ", ""); got != "mary.jane.watson@company.com" {
		t.Fatalf("unexpected email %q", got)
	}
	if got := DeriveEmail("Bo", "acme.io"); got != "bo@acme.io" {
		t.Fatalf("unexpected email %q", got)
	}
}

// TestCompleteAnalysisAppliesIntelligence verifies the full analysis update on a draft.
func TestCompleteAnalysisAppliesIntelligence(t *testing.T) {
	m := newDraftMeeting(t)
	tree := &MindMapNode{Name: "Roadmap", Children: []MindMapNode{{Name: "Hiring"}}}
	if err := m.CompleteAnalysis(sampleIntelligence(), tree, sequenceIDs("task")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	want := []Task{{ID: "task-1", Title: "X", Assignee: "Alex", Status: TaskPending}}
	if diff := cmp.Diff(want, m.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if m.Status != StatusAnalyzed || !m.IsAnalyzed() {
		t.Fatalf("expected analyzed status, got %q", m.Status)
	}
	if m.MindMap == nil || m.MindMap.Name != "Roadmap" {
		t.Fatalf("unexpected mind map %#v", m.MindMap)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, m.StrategyShifts); diff != "" {
		t.Fatalf("strategy shifts mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteAnalysisPlaceholderMindMap(t *testing.T) {
	m := newDraftMeeting(t)
	if err := m.CompleteAnalysis(sampleIntelligence(), nil, sequenceIDs("task")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if diff := cmp.Diff(PlaceholderMindMap(), m.MindMap); diff != "" {
		t.Fatalf("mind map mismatch (-want +got):\n%s", diff)
	}
}

// TestCompleteAnalysisIsAtomic verifies a rejected update leaves the record untouched.
func TestCompleteAnalysisIsAtomic(t *testing.T) {
	m := newDraftMeeting(t)
	before := m
	intel := sampleIntelligence()
	intel.Tasks = append(intel.Tasks, ExtractedTask{Title: "Y", Assignee: "Riya"})
	constantID := func() string { return "same" }
	if err := m.CompleteAnalysis(intel, nil, constantID); !errors.Is(err, ErrDuplicateTaskID) {
		t.Fatalf("expected ErrDuplicateTaskID, got %v", err)
	}
	if diff := cmp.Diff(before, m); diff != "" {
		t.Fatalf("record changed on failed analysis (-want +got):\n%s", diff)
	}
	empty := sampleIntelligence()
	empty.Summary = "  "
	if err := m.CompleteAnalysis(empty, nil, sequenceIDs("t")); !errors.Is(err, ErrEmptyIntelligence) {
		t.Fatalf("expected ErrEmptyIntelligence, got %v", err)
	}
}

func TestCompleteAnalysisKeepsPublishedStatus(t *testing.T) {
	m := newDraftMeeting(t)
	if err := m.CompleteAnalysis(sampleIntelligence(), nil, sequenceIDs("a")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if err := m.Publish(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := m.CompleteAnalysis(sampleIntelligence(), nil, sequenceIDs("b")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if m.Status != StatusPublished {
		t.Fatalf("expected status to stay published, got %q", m.Status)
	}
}

func TestToggleTask(t *testing.T) {
	m := newDraftMeeting(t)
	intel := sampleIntelligence()
	intel.Tasks = append(intel.Tasks, ExtractedTask{Title: "Y", Assignee: "Riya"})
	if err := m.CompleteAnalysis(intel, nil, sequenceIDs("task")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if !m.ToggleTask("task-2") {
		t.Fatal("expected toggle to match task-2")
	}
	if m.Tasks[1].Status != TaskCompleted || m.Tasks[0].Status != TaskPending {
		t.Fatalf("unexpected task statuses %#v", m.Tasks)
	}
	if !m.ToggleTask("task-2") || m.Tasks[1].Status != TaskPending {
		t.Fatalf("expected task-2 to flip back, got %#v", m.Tasks[1])
	}

	before := append([]Task(nil), m.Tasks...)
	if m.ToggleTask("missing") {
		t.Fatal("expected toggle of unknown id to report false")
	}
	if diff := cmp.Diff(before, m.Tasks); diff != "" {
		t.Fatalf("tasks changed on unknown id (-want +got):\n%s", diff)
	}
}

// TestPublishIsIdempotent verifies publishing twice leaves the record unchanged after the first call.
func TestPublishIsIdempotent(t *testing.T) {
	m := newDraftMeeting(t)
	if err := m.Publish(); !errors.Is(err, ErrNotAnalyzed) {
		t.Fatalf("expected ErrNotAnalyzed, got %v", err)
	}
	if err := m.CompleteAnalysis(sampleIntelligence(), nil, sequenceIDs("task")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if err := m.Publish(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	first := m
	if err := m.Publish(); err != nil {
		t.Fatalf("Publish() second error = %v", err)
	}
	if diff := cmp.Diff(first, m); diff != "" {
		t.Fatalf("second publish changed record (-want +got):\n%s", diff)
	}
}

func TestRecordAccess(t *testing.T) {
	m := newDraftMeeting(t)
	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if _, err := m.RecordAccess(RoleMember, now); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}
	if len(m.AccessLogs) != 0 {
		t.Fatalf("expected no access logs, got %d", len(m.AccessLogs))
	}

	if err := m.CompleteAnalysis(sampleIntelligence(), nil, sequenceIDs("task")); err != nil {
		t.Fatalf("CompleteAnalysis() error = %v", err)
	}
	if err := m.Publish(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	first, err := m.RecordAccess("member", now)
	if err != nil {
		t.Fatalf("RecordAccess() error = %v", err)
	}
	if first.ViewerRole != RoleMember {
		t.Fatalf("unexpected role %q", first.ViewerRole)
	}
	second, err := m.RecordAccess(RoleAdmin, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("RecordAccess() error = %v", err)
	}
	if second.Timestamp.Before(first.Timestamp) {
		t.Fatalf("expected non-decreasing timestamps, got %v before %v", second.Timestamp, first.Timestamp)
	}
	if len(m.AccessLogs) != 2 {
		t.Fatalf("expected 2 access logs, got %d", len(m.AccessLogs))
	}
	if _, err := m.RecordAccess("guest", now); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestInferStatus(t *testing.T) {
	cases := []struct {
		stored  Status
		summary string
		want    Status
	}{
		{stored: "", summary: "", want: StatusDraft},
		{stored: "draft", summary: "", want: StatusDraft},
		{stored: "draft", summary: "done", want: StatusAnalyzed},
		{stored: "", summary: "done", want: StatusAnalyzed},
		{stored: "published", summary: "done", want: StatusPublished},
		{stored: " Analyzed ", summary: "", want: StatusAnalyzed},
	}
	for _, tc := range cases {
		if got := InferStatus(tc.stored, tc.summary); got != tc.want {
			t.Fatalf("InferStatus(%q, %q) = %q, want %q", tc.stored, tc.summary, got, tc.want)
		}
	}
}

func TestMindMapTruncated(t *testing.T) {
	deep := MindMapNode{Name: "root", Children: []MindMapNode{
		{Name: "a", Children: []MindMapNode{
			{Name: "b", Children: []MindMapNode{{Name: "c"}}},
		}},
		{Name: "  "},
	}}
	got := deep.Truncated(MaxMindMapDepth)
	if got.Depth() != 3 {
		t.Fatalf("expected depth 3, got %d", got.Depth())
	}
	if len(got.Children) != 1 {
		t.Fatalf("expected blank child to be dropped, got %#v", got.Children)
	}
	var names []string
	got.Walk(func(node MindMapNode, level int) {
		names = append(names, fmt.Sprintf("%d:%s", level, node.Name))
	})
	if diff := cmp.Diff([]string{"0:root", "1:a", "2:b"}, names); diff != "" {
		t.Fatalf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestMeetingVisibility(t *testing.T) {
	m := newDraftMeeting(t)
	if !m.VisibleTo(RoleAdmin) || m.VisibleTo(RoleMember) {
		t.Fatal("expected draft visible to admin only")
	}
	if diff := cmp.Diff([]string{"alex.kim@company.com", "riya@company.com", "aman@company.com"}, m.Recipients()); diff != "" {
		t.Fatalf("recipients mismatch (-want +got):\n%s", diff)
	}
}
