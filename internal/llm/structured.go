package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

const strictJSONInstruction = "Your previous reply could not be parsed. Respond with a single JSON object that matches the schema exactly. Do not add prose or code fences."

// SchemaFor reflects a JSON Schema document for T.
func SchemaFor[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	// Providers reject the draft URI and id on nested response schemas.
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

// CompleteStructured asks c for JSON matching T. A reply that does not decode
// (or that validate rejects) is retried once with a stricter instruction;
// a second failure returns ErrMalformedOutput.
func CompleteStructured[T any](ctx context.Context, c Client, req Request, validate func(T) error) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrNotConfigured
	}
	req.JSON = true
	if req.Schema == nil {
		req.Schema = SchemaFor[T]()
	}

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return zero, err
	}
	out, parseErr := decode(resp.Text, validate)
	if parseErr == nil {
		return out, nil
	}

	retry := req
	retry.System = strings.TrimSpace(req.System + "\n\n" + strictJSONInstruction)
	retry.Temperature = 0
	resp, err = c.Complete(ctx, retry)
	if err != nil {
		return zero, err
	}
	out, parseErr = decode(resp.Text, validate)
	if parseErr != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, req.Name, parseErr)
	}
	return out, nil
}

func decode[T any](text string, validate func(T) error) (T, error) {
	var out T
	text = stripFences(text)
	if text == "" {
		return out, errors.New("empty output")
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("parse: %w", err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return out, fmt.Errorf("validate: %w", err)
		}
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// SchemaJSON renders a schema document compactly for inlining into prompts.
func SchemaJSON(schema map[string]any) string {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
