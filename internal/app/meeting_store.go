package app

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hylla/syncnotes/internal/domain"
)

// MeetingsKey is the store key holding the serialized meeting list.
const MeetingsKey = "syncnotes_meetings"

type participantRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type taskRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
	Status   string `json:"status"`
}

func newTaskRecord(task domain.Task) taskRecord {
	return taskRecord{ID: task.ID, Title: task.Title, Assignee: task.Assignee, Status: string(task.Status)}
}

type mindMapRecord struct {
	Name     string          `json:"name"`
	Children []mindMapRecord `json:"children,omitempty"`
}

type accessLogRecord struct {
	Timestamp  int64  `json:"timestamp"`
	ViewerRole string `json:"viewerRole"`
}

// meetingRecord is the persisted JSON shape; timestamps are unix milliseconds.
type meetingRecord struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Agenda         string              `json:"agenda"`
	Date           string              `json:"date"`
	Time           string              `json:"time"`
	Participants   []participantRecord `json:"participants"`
	Transcript     string              `json:"transcript"`
	Summary        string              `json:"summary"`
	Conclusion     string              `json:"conclusion,omitempty"`
	StrategyShifts []string            `json:"strategyShifts"`
	Tasks          []taskRecord        `json:"tasks"`
	MindMap        *mindMapRecord      `json:"mindMap"`
	Status         string              `json:"status"`
	CreatedAt      int64               `json:"createdAt"`
	AccessLogs     []accessLogRecord   `json:"accessLogs"`
}

func encodeMindMap(node domain.MindMapNode) mindMapRecord {
	out := mindMapRecord{Name: node.Name}
	for _, child := range node.Children {
		out.Children = append(out.Children, encodeMindMap(child))
	}
	return out
}

func (r mindMapRecord) decode() domain.MindMapNode {
	out := domain.MindMapNode{Name: r.Name, Children: make([]domain.MindMapNode, 0, len(r.Children))}
	for _, child := range r.Children {
		out.Children = append(out.Children, child.decode())
	}
	return out
}

func encodeMeeting(m domain.Meeting) meetingRecord {
	rec := meetingRecord{
		ID:             m.ID,
		Title:          m.Title,
		Agenda:         m.Agenda,
		Date:           m.Date,
		Time:           m.Time,
		Participants:   make([]participantRecord, 0, len(m.Participants)),
		Transcript:     m.Transcript,
		Summary:        m.Summary,
		Conclusion:     m.Conclusion,
		StrategyShifts: slices.Clone(m.StrategyShifts),
		Tasks:          make([]taskRecord, 0, len(m.Tasks)),
		Status:         string(m.Status),
		CreatedAt:      m.CreatedAt.UnixMilli(),
		AccessLogs:     make([]accessLogRecord, 0, len(m.AccessLogs)),
	}
	if rec.StrategyShifts == nil {
		rec.StrategyShifts = []string{}
	}
	for _, p := range m.Participants {
		rec.Participants = append(rec.Participants, participantRecord(p))
	}
	for _, task := range m.Tasks {
		rec.Tasks = append(rec.Tasks, newTaskRecord(task))
	}
	if m.MindMap != nil {
		tree := encodeMindMap(*m.MindMap)
		rec.MindMap = &tree
	}
	for _, entry := range m.AccessLogs {
		rec.AccessLogs = append(rec.AccessLogs, accessLogRecord{Timestamp: entry.Timestamp.UnixMilli(), ViewerRole: string(entry.ViewerRole)})
	}
	return rec
}

// decode converts a persisted record, migrating records written before the analyzed tag existed.
func (r meetingRecord) decode() domain.Meeting {
	m := domain.Meeting{
		ID:             r.ID,
		Title:          r.Title,
		Agenda:         r.Agenda,
		Date:           r.Date,
		Time:           r.Time,
		Participants:   make([]domain.Participant, 0, len(r.Participants)),
		Transcript:     r.Transcript,
		Summary:        r.Summary,
		Conclusion:     r.Conclusion,
		StrategyShifts: slices.Clone(r.StrategyShifts),
		Tasks:          make([]domain.Task, 0, len(r.Tasks)),
		Status:         domain.InferStatus(domain.Status(r.Status), r.Summary),
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
		AccessLogs:     make([]domain.AccessLogEntry, 0, len(r.AccessLogs)),
	}
	if m.StrategyShifts == nil {
		m.StrategyShifts = []string{}
	}
	for _, p := range r.Participants {
		m.Participants = append(m.Participants, domain.Participant(p))
	}
	for _, task := range r.Tasks {
		m.Tasks = append(m.Tasks, domain.Task{
			ID:       task.ID,
			Title:    task.Title,
			Assignee: task.Assignee,
			Status:   domain.NormalizeTaskStatus(domain.TaskStatus(task.Status)),
		})
	}
	if r.MindMap != nil {
		tree := r.MindMap.decode()
		m.MindMap = &tree
	} else if m.IsAnalyzed() {
		m.MindMap = domain.PlaceholderMindMap()
	}
	for _, entry := range r.AccessLogs {
		m.AccessLogs = append(m.AccessLogs, domain.AccessLogEntry{
			Timestamp:  time.UnixMilli(entry.Timestamp).UTC(),
			ViewerRole: domain.NormalizeRole(domain.ViewerRole(entry.ViewerRole)),
		})
	}
	return m
}

// meetingStore keeps the meeting list in one key and rewrites it on every mutation.
type meetingStore struct {
	kv KeyValueStore
	mu sync.Mutex
}

func newMeetingStore(kv KeyValueStore) *meetingStore {
	return &meetingStore{kv: kv}
}

func (s *meetingStore) loadLocked(ctx context.Context) ([]domain.Meeting, error) {
	raw, ok, err := s.kv.Get(ctx, MeetingsKey)
	if err != nil {
		return nil, fmt.Errorf("load meetings: %w", err)
	}
	if !ok || len(strings.TrimSpace(string(raw))) == 0 {
		return []domain.Meeting{}, nil
	}
	var records []meetingRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode meetings: %w", err)
	}
	out := make([]domain.Meeting, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.decode())
	}
	return out, nil
}

func (s *meetingStore) saveLocked(ctx context.Context, meetings []domain.Meeting) error {
	records := make([]meetingRecord, 0, len(meetings))
	for _, m := range meetings {
		records = append(records, encodeMeeting(m))
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode meetings: %w", err)
	}
	if err := s.kv.Put(ctx, MeetingsKey, raw); err != nil {
		return fmt.Errorf("save meetings: %w", err)
	}
	return nil
}

// list returns all meetings in stored order.
func (s *meetingStore) list(ctx context.Context) ([]domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *meetingStore) get(ctx context.Context, id string) (domain.Meeting, error) {
	meetings, err := s.list(ctx)
	if err != nil {
		return domain.Meeting{}, err
	}
	for _, m := range meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Meeting{}, ErrNotFound
}

// insert prepends m so the newest meeting is listed first.
func (s *meetingStore) insert(ctx context.Context, m domain.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meetings, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	return s.saveLocked(ctx, append([]domain.Meeting{m}, meetings...))
}

// update applies fn to the stored meeting and rewrites the list when fn reports a change.
func (s *meetingStore) update(ctx context.Context, id string, fn func(*domain.Meeting) (bool, error)) (domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meetings, err := s.loadLocked(ctx)
	if err != nil {
		return domain.Meeting{}, err
	}
	idx := slices.IndexFunc(meetings, func(m domain.Meeting) bool { return m.ID == id })
	if idx < 0 {
		return domain.Meeting{}, ErrNotFound
	}
	changed, err := fn(&meetings[idx])
	if err != nil {
		return domain.Meeting{}, err
	}
	if !changed {
		return meetings[idx], nil
	}
	if err := s.saveLocked(ctx, meetings); err != nil {
		return domain.Meeting{}, err
	}
	return meetings[idx], nil
}

// MarshalMeeting encodes one meeting in its persisted JSON shape.
func MarshalMeeting(m domain.Meeting) ([]byte, error) {
	return json.Marshal(encodeMeeting(m))
}
