package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("queue closed")

// ChannelQueue is an in-process queue backed by a buffered channel.
type ChannelQueue struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

func NewChannelQueue(buffer int) *ChannelQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelQueue{ch: make(chan Message, buffer)}
}

// Send blocks while the buffer is full, until ctx is done.
func (q *ChannelQueue) Send(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages is drained by the worker pool.
func (q *ChannelQueue) Messages() <-chan Message {
	return q.ch
}

// Close stops accepting messages. Buffered messages remain readable.
func (q *ChannelQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

var _ Client = (*ChannelQueue)(nil)
