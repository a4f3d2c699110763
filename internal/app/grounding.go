package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hylla/syncnotes/internal/domain"
)

// Fixed replies returned in place of model output.
const (
	ChatFailureReply = "Error connecting to AI. Please check your API key."
	ChatEmptyReply   = "I'm sorry, I couldn't process that."
)

const groundingInstruction = "You are SyncNotes AI. Answer questions strictly based on the provided meeting context: %s"

// BuildGroundingContext assembles the text a chat answer is constrained to.
func BuildGroundingContext(m domain.Meeting) string {
	tasks := make([]taskRecord, 0, len(m.Tasks))
	for _, task := range m.Tasks {
		tasks = append(tasks, newTaskRecord(task))
	}
	encoded, err := json.Marshal(tasks)
	if err != nil {
		encoded = []byte("[]")
	}
	return fmt.Sprintf("Meeting Title: %s. Agenda: %s. Summary: %s. Transcript: %s. Tasks: %s",
		m.Title, m.Agenda, m.Summary, m.Transcript, encoded)
}

// ConversationalGrounding answers questions about one meeting.
// Every question opens a fresh session that resends the whole context.
type ConversationalGrounding struct {
	client InferenceClient
	guard  *RequestGuard
	policy RequestPolicy
	model  string
	logger Logger
}

// NewConversationalGrounding constructs a grounding responder.
func NewConversationalGrounding(client InferenceClient, guard *RequestGuard, policy RequestPolicy, model string, logger Logger) *ConversationalGrounding {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ConversationalGrounding{
		client: client,
		guard:  guard,
		policy: policy.normalized(ChatPolicy),
		model:  model,
		logger: logger,
	}
}

// Ask answers message from the meeting context. Failures are converted to a fixed apology.
func (g *ConversationalGrounding) Ask(ctx context.Context, m domain.Meeting, message string) string {
	req := InferenceRequest{
		Model:             g.model,
		Parts:             []Part{{Text: message}},
		SystemInstruction: fmt.Sprintf(groundingInstruction, BuildGroundingContext(m)),
	}
	reply, err := Run(ctx, g.guard, g.policy, func(ctx context.Context) (string, error) {
		return g.client.Generate(ctx, req)
	})
	if err != nil {
		g.logger.Error("chat request failed", "meeting_id", m.ID, "err", err)
		return ChatFailureReply
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ChatEmptyReply
	}
	return reply
}
