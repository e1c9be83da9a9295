// Package dispatch is the durable job queue between the session service and
// the worker pool. It mirrors the teacher's internal/webhooks dispatcher
// split: a durable, polled backend for production and a buffered in-memory
// backend for tests and the in-memory store deployment.
package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/ocx/fhecoord/internal/domain"
)

// JobKind names one of the two asynchronous compute steps a session can
// trigger. Handlers are idempotent: re-delivery of the same kind against a
// session already past the target status is a no-op.
type JobKind string

const (
	AggregateBootstrap JobKind = "aggregate_bootstrap"
	ComputeFunction    JobKind = "compute_function"
)

// TraceCarrier propagates an OpenTelemetry trace context across the queue
// boundary, taking the place of a raw context.Context (which cannot be
// persisted) the way the original passed a HashMap<String,String> header map
// between its Rust producer and consumer.
type TraceCarrier map[string]string

// Job is one unit of dispatched work as seen by a worker.
type Job struct {
	ID        uuid.UUID
	Kind      JobKind
	SessionID domain.SessionID
	Carrier   TraceCarrier
}

// JobDispatcher decouples enqueue (called from the session service, inline
// with an HTTP request) from dequeue (called from worker goroutines). Both
// backends guarantee at-least-once delivery; handlers must be idempotent.
type JobDispatcher interface {
	Enqueue(ctx context.Context, kind JobKind, sessionID domain.SessionID, carrier TraceCarrier) error

	// Dequeue blocks until a job is available or ctx is done. It returns
	// (nil, ctx.Err()) on cancellation, never (nil, nil).
	Dequeue(ctx context.Context) (*Job, error)

	// Ack marks a dequeued job as successfully processed. Calling Ack is
	// mandatory for the Postgres backend (it deletes the row); it is a
	// no-op for the in-memory backend, whose channel already dropped the
	// job on receive.
	Ack(ctx context.Context, job *Job) error
}
