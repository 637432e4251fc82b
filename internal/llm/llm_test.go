package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

type scriptedClient struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	reqs    []Request
}

func (s *scriptedClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	if i < len(s.replies) {
		return Response{Text: s.replies[i]}, nil
	}
	return Response{}, errors.New("no scripted reply")
}

type labels struct {
	Labels []string `json:"labels"`
}

func TestCompleteStructuredRetriesOnceWithStricterInstruction(t *testing.T) {
	c := &scriptedClient{replies: []string{"not json", "```json\n{\"labels\":[\"a\"]}\n```"}}
	out, err := CompleteStructured[labels](context.Background(), c, Request{Name: "test", System: "base"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Labels) != 1 || out.Labels[0] != "a" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(c.reqs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(c.reqs))
	}
	if !strings.Contains(c.reqs[1].System, "could not be parsed") {
		t.Fatalf("expected stricter instruction on retry, got %q", c.reqs[1].System)
	}
	if !c.reqs[0].JSON || c.reqs[0].Schema == nil {
		t.Fatalf("expected JSON mode with schema")
	}
}

func TestCompleteStructuredMalformedAfterRetry(t *testing.T) {
	c := &scriptedClient{replies: []string{`{"labels":[]}`, `{"labels":[]}`}}
	nonEmpty := func(l labels) error {
		if len(l.Labels) == 0 {
			return errors.New("no labels")
		}
		return nil
	}
	_, err := CompleteStructured(context.Background(), c, Request{Name: "test"}, nonEmpty)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestCompleteStructuredRejectsUnknownFields(t *testing.T) {
	c := &scriptedClient{replies: []string{`{"labels":["a"],"extra":1}`, `{"labels":["b"]}`}}
	out, err := CompleteStructured[labels](context.Background(), c, Request{Name: "test"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Labels[0] != "b" {
		t.Fatalf("expected second reply, got %+v", out)
	}
}

func TestSchemaForInlinesDefinitions(t *testing.T) {
	schema := SchemaFor[labels]()
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Fatalf("expected $schema to be stripped")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || props["labels"] == nil {
		t.Fatalf("expected labels property, got %v", schema["properties"])
	}
}

func TestRetryOnTransientError(t *testing.T) {
	c := &scriptedClient{
		errs:    []error{fmt.Errorf("openai http status 503: unavailable"), nil},
		replies: []string{"", "ok"},
	}
	r := retryingClient{base: c, delay: time.Millisecond}
	resp, err := r.Complete(context.Background(), Request{Name: "t"})
	if err != nil || resp.Text != "ok" {
		t.Fatalf("expected retry success, got %q %v", resp.Text, err)
	}
}

func TestNoRetryOnPermanentError(t *testing.T) {
	c := &scriptedClient{errs: []error{fmt.Errorf("openai http status 400: bad request")}}
	r := retryingClient{base: c, delay: time.Millisecond}
	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error")
	}
	if len(c.reqs) != 1 {
		t.Fatalf("expected a single call, got %d", len(c.reqs))
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{errors.New("gemini http status 429"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("llm timeout after 30s"), true},
		{errors.New("openai http status 401"), false},
		{ErrNotConfigured, false},
		{fmt.Errorf("wrap: %w", context.Canceled), false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	failing := &scriptedClient{errs: []error{
		errors.New("boom"), errors.New("boom"), errors.New("boom"),
	}}
	c := WithBreaker("test", failing, BreakerSettings{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.5,
	})
	for i := 0; i < 3; i++ {
		if _, err := c.Complete(context.Background(), Request{}); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	_, err := c.Complete(context.Background(), Request{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state, got %v", err)
	}
	if len(failing.reqs) != 3 {
		t.Fatalf("expected open breaker to skip the provider, got %d calls", len(failing.reqs))
	}
}

func TestEnabled(t *testing.T) {
	if Enabled(nil) || Enabled(PlaceholderClient{}) {
		t.Fatalf("placeholder should not count as enabled")
	}
	if !Enabled(&scriptedClient{}) {
		t.Fatalf("expected real client to be enabled")
	}
}
