package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

const defaultModel = "gemini-2.0-flash"

// Config configures the Gemini adapter.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements llm.Client using the Gemini API.
type Client struct {
	api     *genai.Client
	model   string
	timeout time.Duration
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{api: api, model: model, timeout: timeout}, nil
}

// Complete sends one generate-content call.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.api.Models.GenerateContent(ctx, c.model, genai.Text(promptText(req)), buildConfig(req))
	if err != nil {
		if ctx.Err() != nil {
			return llm.Response{}, fmt.Errorf("llm timeout (gemini): %w", err)
		}
		return llm.Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return llm.Response{}, fmt.Errorf("gemini response empty content")
	}

	out := llm.Response{Text: text, Model: c.model}
	if usage := result.UsageMetadata; usage != nil {
		out.PromptTokens = int(usage.PromptTokenCount)
		out.CompletionTokens = int(usage.CandidatesTokenCount)
	}
	telemetry.Info("llm.usage", map[string]any{
		"provider":          "gemini",
		"model":             c.model,
		"call":              req.Name,
		"prompt_tokens":     out.PromptTokens,
		"completion_tokens": out.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	})
	return out, nil
}

func buildConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// promptText inlines the schema; Gemini's typed schema does not accept
// arbitrary JSON Schema documents.
func promptText(req llm.Request) string {
	if req.Schema == nil {
		return req.Prompt
	}
	return req.Prompt + "\n\nRespond with JSON matching this schema:\n" + llm.SchemaJSON(req.Schema)
}

var _ llm.Client = (*Client)(nil)
