package tasks

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Azee177/jianli/internal/queue"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Executor runs a task by id.
type Executor interface {
	Execute(ctx context.Context, id string) error
}

// Pool drains messages with a bounded number of concurrent executions.
type Pool struct {
	Exec    Executor
	Workers int
}

// Run consumes msgs until the channel closes or ctx is done, then waits for
// in-flight tasks.
func (p Pool) Run(ctx context.Context, msgs <-chan queue.Message) error {
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				p.handle(ctx, msg)
				return nil
			})
		}
	}
}

func (p Pool) handle(ctx context.Context, msg queue.Message) {
	if msg.TaskID == "" {
		telemetry.Error("worker.task.missing_id", map[string]any{"request_id": msg.RequestID})
		return
	}
	ctx = WithRequestID(ctx, msg.RequestID)
	if err := p.Exec.Execute(ctx, msg.TaskID); err != nil {
		telemetry.Error("worker.task.failed", map[string]any{
			"request_id": msg.RequestID,
			"task_id":    msg.TaskID,
			"error":      sanitizeError(err),
		})
	}
}
