// Package gemini calls the Gemini generateContent API through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/hylla/syncnotes/internal/app"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini api key not set")

// Client issues generateContent requests.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient creates a new Gemini client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: strings.TrimSpace(apiKey)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.client,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions.BaseURL = c.baseURL + "/"
	}
	return genai.NewClient(ctx, cfg)
}

func toSchema(in *app.Schema) *genai.Schema {
	if in == nil {
		return nil
	}
	out := &genai.Schema{
		Type:     genai.Type(strings.ToUpper(in.Type)),
		Required: in.Required,
		Items:    toSchema(in.Items),
	}
	if len(in.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(in.Properties))
		for key, child := range in.Properties {
			out.Properties[key] = toSchema(child)
		}
	}
	return out
}

func buildContents(req app.InferenceRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(req app.InferenceRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ResponseSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toSchema(req.ResponseSchema)
	}
	return cfg
}

// Generate sends one request and returns the concatenated text of the first candidate.
// A missing API key fails with app.ErrNotConfigured; every API or network failure is wrapped with
// app.ErrTransport.
func (c *Client) Generate(ctx context.Context, req app.InferenceRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: %w", app.ErrNotConfigured, ErrMissingAPIKey)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = app.DefaultModel
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: create gemini client: %v", app.ErrNotConfigured, redact(err.Error(), c.apiKey))
	}
	resp, err := client.Models.GenerateContent(ctx, model, buildContents(req), buildConfig(req))
	if err != nil {
		return "", fmt.Errorf("%w: gemini api error: %s", app.ErrTransport, redact(err.Error(), c.apiKey))
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", app.ErrTransport, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

func redact(message, secret string) string {
	if secret == "" {
		return message
	}
	return strings.ReplaceAll(message, secret, "***")
}
