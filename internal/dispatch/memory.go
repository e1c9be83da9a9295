package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/ocx/fhecoord/internal/domain"
)

// InMemoryDispatcher is a buffered-channel queue, grounded in the teacher's
// in-memory fallback inside internal/webhooks/dispatcher.go. It never
// survives a process restart, matching the in-memory store's own tradeoff.
type InMemoryDispatcher struct {
	jobs chan Job
}

func NewInMemoryDispatcher(buffer int) *InMemoryDispatcher {
	return &InMemoryDispatcher{jobs: make(chan Job, buffer)}
}

func (d *InMemoryDispatcher) Enqueue(ctx context.Context, kind JobKind, sessionID domain.SessionID, carrier TraceCarrier) error {
	job := Job{ID: uuid.New(), Kind: kind, SessionID: sessionID, Carrier: carrier}
	select {
	case d.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *InMemoryDispatcher) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-d.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *InMemoryDispatcher) Ack(context.Context, *Job) error { return nil }
