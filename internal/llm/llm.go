package llm

import (
	"context"
	"errors"
)

// Client abstracts text-generation providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is a single prompt/response exchange.
type Request struct {
	// Name labels the call for logs and schema naming, e.g. "classify_requirements".
	Name        string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response.
	JSON bool
	// Schema optionally constrains JSON output. It is a JSON Schema document.
	Schema map[string]any
}

// Response carries the provider output.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

var (
	// ErrNotConfigured is returned by the placeholder client.
	ErrNotConfigured = errors.New("llm not configured")
	// ErrMalformedOutput is returned when structured output could not be parsed after a retry.
	ErrMalformedOutput = errors.New("llm output malformed")
)

// PlaceholderClient is used when no provider is configured. Callers fall back
// to their rule-based paths.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (Response, error) {
	_ = ctx
	_ = req
	return Response{}, ErrNotConfigured
}

// Enabled reports whether c can produce output.
func Enabled(c Client) bool {
	if c == nil {
		return false
	}
	_, placeholder := c.(PlaceholderClient)
	return !placeholder
}
