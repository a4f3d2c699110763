package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/syncnotes/internal/domain"
)

// DefaultModel is the inference model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

const intelligenceSchemaJSON = `{
	"type": "object",
	"required": ["transcript", "summary", "strategyShifts", "tasks", "conclusion"],
	"properties": {
		"transcript": {"type": "string"},
		"summary": {"type": "string", "minLength": 1},
		"conclusion": {"type": "string"},
		"strategyShifts": {"type": "array", "items": {"type": "string"}},
		"tasks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title", "assignee"],
				"properties": {
					"title": {"type": "string"},
					"assignee": {"type": "string"}
				}
			}
		}
	}
}`

var intelligenceSchema = mustCompileSchema(intelligenceSchemaJSON)

const transcriptionPrompt = `Act as an expert Stenographer and Business Intelligence Lead.

PART 1: VERBATIM TRANSCRIPTION
Transcribe the entire audio file WORD-FOR-WORD. Do not skip filler words and do not summarize. Provide the full transcript.

PART 2: STRUCTURED INTELLIGENCE
Based on the transcript and the meeting agenda (%s):
1. Provide a concise executive summary.
2. Identify EXACTLY three key strategy shifts discussed.
3. Extract all actionable tasks. For each task, identify the specific person assigned.
4. Provide a formal "Closing Conclusion" for a branded report.

You MUST return the response strictly as a JSON object.`

// AudioInput is a recorded meeting payload.
type AudioInput struct {
	Data     []byte
	MIMEType string
}

type intelligencePayload struct {
	Transcript     string   `json:"transcript"`
	Summary        string   `json:"summary"`
	Conclusion     string   `json:"conclusion"`
	StrategyShifts []string `json:"strategyShifts"`
	Tasks          []struct {
		Title    string `json:"title"`
		Assignee string `json:"assignee"`
	} `json:"tasks"`
}

// TranscriptionExtractor turns meeting audio into structured intelligence.
type TranscriptionExtractor struct {
	client InferenceClient
	guard  *RequestGuard
	policy RequestPolicy
	model  string
}

// NewTranscriptionExtractor constructs an extractor.
func NewTranscriptionExtractor(client InferenceClient, guard *RequestGuard, policy RequestPolicy, model string) *TranscriptionExtractor {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &TranscriptionExtractor{
		client: client,
		guard:  guard,
		policy: policy.normalized(TranscriptionPolicy),
		model:  model,
	}
}

// Extract issues one guarded inference call and parses its reply.
// A reply that does not match the intelligence shape fails with ErrSchemaParse and is not retried.
func (e *TranscriptionExtractor) Extract(ctx context.Context, audio AudioInput, agenda string) (domain.Intelligence, error) {
	if len(audio.Data) == 0 || strings.TrimSpace(audio.MIMEType) == "" {
		return domain.Intelligence{}, ErrInvalidAudio
	}
	req := InferenceRequest{
		Model: e.model,
		Parts: []Part{
			{Data: audio.Data, MIMEType: strings.TrimSpace(audio.MIMEType)},
			{Text: fmt.Sprintf(transcriptionPrompt, strings.TrimSpace(agenda))},
		},
		ResponseSchema: intelligenceSchema,
	}
	text, err := Run(ctx, e.guard, e.policy, func(ctx context.Context) (string, error) {
		return e.client.Generate(ctx, req)
	})
	if err != nil {
		return domain.Intelligence{}, fmt.Errorf("ai request failed: %w", err)
	}
	return parseIntelligence(text)
}

func parseIntelligence(text string) (domain.Intelligence, error) {
	cleaned := stripCodeFences(text)
	if err := intelligenceSchema.ValidatePayload([]byte(cleaned)); err != nil {
		return domain.Intelligence{}, processingFailure(err)
	}
	var payload intelligencePayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return domain.Intelligence{}, processingFailure(err)
	}

	intel := domain.Intelligence{
		Transcript:     payload.Transcript,
		Summary:        strings.TrimSpace(payload.Summary),
		Conclusion:     strings.TrimSpace(payload.Conclusion),
		StrategyShifts: make([]string, 0, len(payload.StrategyShifts)),
		Tasks:          make([]domain.ExtractedTask, 0, len(payload.Tasks)),
	}
	if intel.Summary == "" {
		return domain.Intelligence{}, processingFailure(errors.New("summary is blank"))
	}
	for _, shift := range payload.StrategyShifts {
		if shift = strings.TrimSpace(shift); shift != "" {
			intel.StrategyShifts = append(intel.StrategyShifts, shift)
		}
	}
	for _, task := range payload.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			continue
		}
		intel.Tasks = append(intel.Tasks, domain.ExtractedTask{Title: task.Title, Assignee: task.Assignee})
	}
	return intel, nil
}

func processingFailure(cause error) error {
	return fmt.Errorf("%w: failed to parse meeting intelligence, please try again with clearer audio: %v", ErrSchemaParse, cause)
}
