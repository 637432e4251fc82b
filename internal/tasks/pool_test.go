package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azee177/jianli/internal/queue"
)

type countingExecutor struct {
	mu       sync.Mutex
	ids      []string
	inFlight int64
	peak     int64
}

func (e *countingExecutor) Execute(ctx context.Context, id string) error {
	n := atomic.AddInt64(&e.inFlight, 1)
	for {
		p := atomic.LoadInt64(&e.peak)
		if n <= p || atomic.CompareAndSwapInt64(&e.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt64(&e.inFlight, -1)
	e.mu.Lock()
	e.ids = append(e.ids, id)
	e.mu.Unlock()
	return nil
}

func TestPoolBoundsConcurrencyAndDrains(t *testing.T) {
	q := queue.NewChannelQueue(20)
	for i := 0; i < 12; i++ {
		_ = q.Send(context.Background(), queue.Message{TaskID: "t"})
	}
	_ = q.Send(context.Background(), queue.Message{})
	q.Close()

	exec := &countingExecutor{}
	if err := (Pool{Exec: exec, Workers: 3}).Run(context.Background(), q.Messages()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(exec.ids) != 12 {
		t.Fatalf("expected 12 executions, got %d", len(exec.ids))
	}
	if exec.peak > 3 {
		t.Fatalf("expected at most 3 concurrent, got %d", exec.peak)
	}
}

func TestPoolEndToEndWithOrchestrator(t *testing.T) {
	q := queue.NewChannelQueue(4)
	o, _ := newTestOrchestrator(q)
	o.Register("upper", func(ctx context.Context, t Task, p Progress) (any, error) { return "DONE", nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (Pool{Exec: o, Workers: 2}).Run(ctx, q.Messages()) }()

	task, err := o.Submit(context.Background(), "u1", "upper", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := o.Get(context.Background(), "u1", task.ID)
		if got.Status == StatusDone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task not done, status %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
