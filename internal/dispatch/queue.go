package dispatch

import (
	"context"
	"sync"
)

// Poster schedules work onto the update goroutine.
type Poster interface {
	Post(fn func())
}

// Queue is a FIFO of tasks that are executed on the update goroutine.
// Post is safe to call from any goroutine; Tick must only be called from the
// update goroutine.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
}

// Tick runs every task queued before the call. Tasks posted while draining
// are left for the next tick.
func (q *Queue) Tick(ctx context.Context) error {
	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn()
	}

	return nil
}

// Len returns the number of tasks waiting for the next tick.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
