package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/hylla/syncnotes/internal/domain"
)

const mindMapSchemaJSON = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"children": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"children": {
						"type": "array",
						"items": {"type": "object", "properties": {"name": {"type": "string"}}}
					}
				}
			}
		}
	}
}`

var mindMapSchema = mustCompileSchema(mindMapSchemaJSON)

const mindMapPrompt = `Based on this summary: "%s", generate a nested JSON mind map.
Root is the meeting theme. Children are primary topics.
Format: { "name": "Theme", "children": [ { "name": "Topic", "children": [] } ] }`

type mindMapPayload struct {
	Name     string           `json:"name"`
	Children []mindMapPayload `json:"children"`
}

func (p mindMapPayload) node() domain.MindMapNode {
	out := domain.MindMapNode{Name: p.Name, Children: make([]domain.MindMapNode, 0, len(p.Children))}
	for _, child := range p.Children {
		out.Children = append(out.Children, child.node())
	}
	return out
}

// MindMapSynthesizer builds a topic tree from a meeting summary.
type MindMapSynthesizer struct {
	client InferenceClient
	guard  *RequestGuard
	policy RequestPolicy
	model  string
	logger Logger
}

// NewMindMapSynthesizer constructs a synthesizer.
func NewMindMapSynthesizer(client InferenceClient, guard *RequestGuard, policy RequestPolicy, model string, logger Logger) *MindMapSynthesizer {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MindMapSynthesizer{
		client: client,
		guard:  guard,
		policy: policy.normalized(MindMapPolicy),
		model:  model,
		logger: logger,
	}
}

// Synthesize returns the mind map for summary. Unparseable replies degrade to the placeholder
// tree; transport and timeout failures are returned.
func (s *MindMapSynthesizer) Synthesize(ctx context.Context, summary string) (*domain.MindMapNode, error) {
	req := InferenceRequest{
		Model:          s.model,
		Parts:          []Part{{Text: fmt.Sprintf(mindMapPrompt, summary)}},
		ResponseSchema: mindMapSchema,
	}
	text, err := Run(ctx, s.guard, s.policy, func(ctx context.Context) (string, error) {
		return s.client.Generate(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("mind map generation failed: %w", err)
	}
	tree, err := parseMindMap(text)
	if err != nil {
		s.logger.Warn("mind map reply unusable, using placeholder", "err", err)
		return domain.PlaceholderMindMap(), nil
	}
	return tree, nil
}

func parseMindMap(text string) (*domain.MindMapNode, error) {
	cleaned := stripCodeFences(text)
	if err := mindMapSchema.ValidatePayload([]byte(cleaned)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaParse, err)
	}
	var payload mindMapPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaParse, err)
	}
	tree := payload.node().Truncated(domain.MaxMindMapDepth)
	return &tree, nil
}
