package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Azee177/jianli/internal/llm"
	"github.com/Azee177/jianli/internal/queue"
	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

const (
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeInvalidStep = "INVALID_STAGE"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeLLMTimeout  = "LLM_TIMEOUT"
	ErrorCodeLLMOutput   = "LLM_OUTPUT_INVALID"
	ErrorCodeStorage     = "STORAGE_ERROR"
	ErrorCodeQueue       = "QUEUE_ERROR"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)

const defaultTimeout = 3 * time.Minute

// staleGrace is how long past its timeout a running task may go unfinished
// before a redelivered message claims it again.
const staleGrace = time.Minute

const finishAttempts = 4

// Progress reports completion percentage of a running task.
type Progress func(percent int)

// TaskHandler runs one task kind. The returned value is stored as the task result.
type TaskHandler func(ctx context.Context, t Task, progress Progress) (any, error)

// Orchestrator accepts task submissions, hands task ids to a queue and
// executes them when a worker delivers the id back.
type Orchestrator struct {
	Repo    Repo
	Queue   queue.Client
	Timeout time.Duration
	Now     func() time.Time
	NewID   func() string

	// FinishBackoff is the first wait between attempts to record an outcome.
	// It doubles on each retry.
	FinishBackoff time.Duration

	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

func NewOrchestrator(repo Repo, q queue.Client, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Orchestrator{
		Repo:     repo,
		Queue:    q,
		Timeout:  timeout,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
		handlers: make(map[string]TaskHandler),

		FinishBackoff: 100 * time.Millisecond,
	}
}

// Register binds a handler to a task kind. Registering a kind twice panics.
func (o *Orchestrator) Register(kind string, h TaskHandler) {
	if kind == "" || h == nil {
		panic("tasks: register requires kind and handler")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handlers == nil {
		o.handlers = make(map[string]TaskHandler)
	}
	if _, dup := o.handlers[kind]; dup {
		panic("tasks: duplicate handler for " + kind)
	}
	o.handlers[kind] = h
}

func (o *Orchestrator) handler(kind string) (TaskHandler, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	h, ok := o.handlers[kind]
	return h, ok
}

// Submit stores a queued task and enqueues its id. If the queue rejects the
// message the task is finished as error and returned with the enqueue error.
func (o *Orchestrator) Submit(ctx context.Context, userID, kind string, payload any) (Task, error) {
	if strings.TrimSpace(userID) == "" {
		return Task{}, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if _, ok := o.handler(kind); !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("%w: encode payload: %v", ErrValidation, err)
	}

	now := o.Now()
	t := Task{
		ID:        o.NewID(),
		UserID:    userID,
		Kind:      kind,
		Status:    StatusQueued,
		Payload:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.Repo.Create(ctx, t); err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	requestID := requestIDFromContext(ctx)
	telemetry.Info("task.status", map[string]any{
		"request_id":        requestID,
		"user_id":           userID,
		"task_id":           t.ID,
		"kind":              kind,
		"status":            StatusQueued,
		"status_transition": "->queued",
	})

	msg := queue.Message{
		TaskID:     t.ID,
		RequestID:  requestID,
		EnqueuedAt: now.Format(time.RFC3339),
		Version:    1,
	}
	if err := o.Queue.Send(ctx, msg); err != nil {
		failed, finishErr := o.Repo.Finish(context.WithoutCancel(ctx), t.ID, Outcome{
			Status:    StatusError,
			Error:     "task could not be scheduled",
			ErrorCode: ErrorCodeQueue,
			At:        o.Now(),
		})
		if finishErr == nil {
			t = failed
		}
		telemetry.Error("task.enqueue_failed", map[string]any{
			"request_id": requestID,
			"task_id":    t.ID,
			"kind":       kind,
			"error":      sanitizeError(err),
		})
		metrics.IncTaskFinished(kind, string(StatusError))
		return t, fmt.Errorf("enqueue task: %w", err)
	}
	return t, nil
}

// Get returns a task owned by userID.
func (o *Orchestrator) Get(ctx context.Context, userID, id string) (Task, error) {
	t, err := o.Repo.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.UserID != userID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// List returns the user's tasks, newest first.
func (o *Orchestrator) List(ctx context.Context, userID string, f Filter) ([]Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	return o.Repo.ListByUser(ctx, userID, f)
}

// SetProgress records completion percentage, clamped to [0,100].
func (o *Orchestrator) SetProgress(ctx context.Context, id string, percent int) error {
	percent = max(0, min(100, percent))
	return o.Repo.SetProgress(ctx, id, percent, o.Now())
}

// Execute claims and runs a task. A task that is no longer queued is skipped,
// so redelivered messages do not run a task twice, unless it has been running
// for longer than the timeout plus a grace period and its worker is presumed
// lost. Handler failures finish the task as error and are not returned; the
// returned error means the task store could not be read or written.
func (o *Orchestrator) Execute(ctx context.Context, id string) error {
	startedAt := o.Now()
	t, claimed, err := o.Repo.Claim(ctx, id, startedAt, startedAt.Add(-(o.Timeout + staleGrace)))
	if err != nil {
		return fmt.Errorf("claim task: %w", err)
	}
	requestID := requestIDFromContext(ctx)
	if !claimed {
		telemetry.Info("task.skipped", map[string]any{
			"request_id": requestID,
			"task_id":    id,
			"status":     t.Status,
		})
		return nil
	}

	metrics.IncTaskStarted(t.Kind)
	telemetry.Info("task.status", map[string]any{
		"request_id":        requestID,
		"user_id":           t.UserID,
		"task_id":           t.ID,
		"kind":              t.Kind,
		"status":            StatusRunning,
		"status_transition": "queued->running",
	})

	h, ok := o.handler(t.Kind)
	var result any
	if !ok {
		err = fmt.Errorf("no handler for kind %s", t.Kind)
	} else {
		runCtx, cancel := context.WithTimeout(ctx, o.Timeout)
		result, err = o.run(runCtx, t, h)
		if err == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = runCtx.Err()
		}
		cancel()
	}

	out := Outcome{Status: StatusDone, At: o.Now()}
	if err == nil {
		out.Result, err = json.Marshal(result)
		if err != nil {
			err = fmt.Errorf("encode result: %w", err)
		}
	}
	if err != nil {
		code, message := classifyFailure(err)
		out = Outcome{Status: StatusError, Error: message, ErrorCode: code, At: out.At}
		telemetry.Error("task.failed", map[string]any{
			"request_id": requestID,
			"task_id":    t.ID,
			"kind":       t.Kind,
			"error_code": code,
			"error":      sanitizeError(err),
		})
	}

	if err := o.finish(context.WithoutCancel(ctx), t.ID, out); err != nil {
		if errors.Is(err, ErrTerminal) {
			telemetry.Warn("task.finished_elsewhere", map[string]any{
				"request_id": requestID,
				"task_id":    t.ID,
				"kind":       t.Kind,
			})
			return nil
		}
		return fmt.Errorf("finish task: %w", err)
	}
	metrics.IncTaskFinished(t.Kind, string(out.Status))
	metrics.ObserveTaskDuration(t.Kind, out.At.Sub(startedAt))
	telemetry.Info("task.status", map[string]any{
		"request_id":        requestID,
		"user_id":           t.UserID,
		"task_id":           t.ID,
		"kind":              t.Kind,
		"status":            out.Status,
		"status_transition": "running->" + string(out.Status),
		"duration_ms":       out.At.Sub(startedAt).Milliseconds(),
	})
	return nil
}

// finish records out, retrying store errors with backoff so a transient
// failure does not leave the task running. Rejections from the store are
// not retried.
func (o *Orchestrator) finish(ctx context.Context, id string, out Outcome) error {
	var err error
	wait := o.FinishBackoff
	for attempt := 1; attempt <= finishAttempts; attempt++ {
		if _, err = o.Repo.Finish(ctx, id, out); err == nil || errors.Is(err, ErrTerminal) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
			return err
		}
		if attempt == finishAttempts {
			break
		}
		telemetry.Warn("task.finish_retry", map[string]any{
			"task_id": id,
			"attempt": attempt,
			"error":   sanitizeError(err),
		})
		time.Sleep(wait)
		wait *= 2
	}
	return err
}

func (o *Orchestrator) run(ctx context.Context, t Task, h TaskHandler) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	progress := func(percent int) {
		if perr := o.SetProgress(context.WithoutCancel(ctx), t.ID, percent); perr != nil {
			telemetry.Warn("task.progress_failed", map[string]any{
				"task_id": t.ID,
				"error":   perr.Error(),
			})
		}
	}
	return h(ctx, t, progress)
}

// classifyFailure maps an error to the code and short message stored on the
// task. Raw error text stays in logs.
func classifyFailure(err error) (string, string) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code, f.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout, "task timed out"
	}
	if errors.Is(err, llm.ErrMalformedOutput) {
		return ErrorCodeLLMOutput, "text generation returned malformed output"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, "text generation timed out"
	}
	if strings.Contains(msg, "llm output") || strings.Contains(msg, "schema") {
		return ErrorCodeLLMOutput, "text generation returned malformed output"
	}
	if strings.Contains(msg, "validation") && !strings.Contains(msg, "llm") {
		return ErrorCodeValidation, "invalid task input"
	}
	if strings.Contains(msg, "storage") || strings.Contains(msg, "database") || strings.Contains(msg, "sql") {
		return ErrorCodeStorage, "storage unavailable"
	}
	return ErrorCodeInternal, "internal error"
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
