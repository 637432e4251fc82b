package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/Azee177/jianli/internal/queue"
	"github.com/Azee177/jianli/internal/tasks"
)

type fakeExecutor struct {
	ids       []string
	err       error
}

func (f *fakeExecutor) Execute(ctx context.Context, id string) error {
	f.ids = append(f.ids, id)
	return f.err
}

func body(t *testing.T, msg queue.Message) string {
	t.Helper()
	raw, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage("  "); !errors.As(err, new(ErrEmptyBody)) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	_, meta, err := ParseMessage("{bad")
	if !errors.As(err, new(ErrDecode)) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 4 || len(meta.BodySHA) != 64 {
		t.Fatalf("unexpected meta %+v", meta)
	}
	var missing ErrMissingTaskID
	if _, _, err := ParseMessage(`{"requestId":"r1"}`); !errors.As(err, &missing) || missing.RequestID != "r1" {
		t.Fatalf("expected ErrMissingTaskID with request id, got %v", err)
	}
}

func TestHandleMessageExecutesTask(t *testing.T) {
	exec := &fakeExecutor{}
	if err := HandleMessage(context.Background(), exec, body(t, queue.Message{TaskID: "t1", RequestID: "r1"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(exec.ids) != 1 || exec.ids[0] != "t1" {
		t.Fatalf("unexpected executions %v", exec.ids)
	}
}

func TestHandleMessageUsesParsedMessageFromContext(t *testing.T) {
	exec := &fakeExecutor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{TaskID: "from-ctx"})
	if err := HandleMessage(ctx, exec, "ignored"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exec.ids[0] != "from-ctx" {
		t.Fatalf("expected parsed message to be reused, got %v", exec.ids)
	}
}

func TestHandleMessageWrapsStoreFailure(t *testing.T) {
	exec := &fakeExecutor{err: tasks.ErrNotFound}
	err := HandleMessage(context.Background(), exec, body(t, queue.Message{TaskID: "t1"}))
	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.TaskID != "t1" || !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrProcess wrapping ErrNotFound, got %v", err)
	}
}
