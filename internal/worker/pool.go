// Package worker drains a dispatch.JobDispatcher with a fixed-size pool of
// goroutines and routes each job to the matching sessionsvc handler. All
// session-mutation logic lives in internal/sessionsvc; this package is the
// thin execution shell around it, following the teacher's webhook worker
// pool shape (N goroutines pulling off one queue, metrics per invocation).
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/monitoring"
	"github.com/ocx/fhecoord/internal/sessionsvc"
)

// Pool runs Concurrent goroutines, each looping Dispatcher.Dequeue and
// dispatching by JobKind until ctx is canceled.
type Pool struct {
	Dispatcher dispatch.JobDispatcher
	Service    *sessionsvc.Service
	Concurrent int
	Metrics    *monitoring.Metrics
	Logger     *slog.Logger
}

// Run blocks until ctx is canceled and every worker goroutine has exited.
func (p *Pool) Run(ctx context.Context) {
	n := p.Concurrent
	if n <= 0 {
		n = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id, logger)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int, logger *slog.Logger) {
	for {
		job, err := p.Dispatcher.Dequeue(ctx)
		if err != nil {
			return
		}
		p.handle(ctx, job, workerID, logger)
	}
}

func (p *Pool) handle(ctx context.Context, job *dispatch.Job, workerID int, logger *slog.Logger) {
	start := time.Now()
	var err error
	switch job.Kind {
	case dispatch.AggregateBootstrap:
		err = p.Service.HandleAggregateBootstrap(ctx, job.SessionID)
	case dispatch.ComputeFunction:
		err = p.Service.HandleComputeFunction(ctx, job.SessionID)
	default:
		logger.Warn("worker: unknown job kind", "kind", job.Kind, "worker", workerID)
		return
	}
	elapsed := time.Since(start)

	if p.Metrics != nil {
		p.Metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(elapsed.Seconds())
		if err != nil {
			p.Metrics.JobFailures.WithLabelValues(string(job.Kind)).Inc()
		}
	}

	if err != nil {
		logger.Error("worker: job handler failed", "kind", job.Kind, "session_id", job.SessionID.String(), "error", err, "worker", workerID)
		return
	}
	if err := p.Dispatcher.Ack(ctx, job); err != nil {
		logger.Error("worker: ack failed", "kind", job.Kind, "session_id", job.SessionID.String(), "error", err, "worker", workerID)
		return
	}
	logger.Info("worker: job handled", "kind", job.Kind, "session_id", job.SessionID.String(), "elapsed_ms", elapsed.Milliseconds(), "worker", workerID)
}
