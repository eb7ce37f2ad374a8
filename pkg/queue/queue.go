// Package queue serializes repository mutations that must not interleave.
// Listing updates and guide relocations read-modify-write shared files, so a
// single consumer applies them one at a time in submission order.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hackguides/guides/pkg/log"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue: closed")

// ErrFull is returned by Enqueue when the backlog is at capacity. Callers
// treat it as backpressure and surface the failure instead of blocking a
// request handler.
var ErrFull = errors.New("queue: full")

// Job is a unit of serialized work. Name is only used for logging.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs jobs one at a time in FIFO order.
type Queue struct {
	jobs   chan Job
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// New creates a queue with the given backlog capacity and starts its
// consumer. Canceling ctx stops intake the same way Close does; jobs already
// accepted still run before the consumer exits.
func New(ctx context.Context, capacity int, logger *slog.Logger) *Queue {
	q := &Queue{
		jobs:   make(chan Job, capacity),
		logger: log.Or(logger),
		done:   make(chan struct{}),
	}
	go q.consume(ctx)
	return q
}

// Enqueue submits a job. It never blocks.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrFull
	}
}

// Close stops accepting jobs and waits for the backlog to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.done
}

func (q *Queue) consume(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("change queue stopping", slog.Int("backlog", len(q.jobs)))
			q.stopIntake()
			for job := range q.jobs {
				q.run(ctx, job)
			}
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(ctx, job)
		}
	}
}

// stopIntake flips the queue closed and seals the channel unless Close
// already did.
func (q *Queue) stopIntake() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

func (q *Queue) run(ctx context.Context, job Job) {
	// Accepted jobs are a promise; cancellation only stops intake, so the
	// backlog runs on an uncancelable context.
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	// A panicking job must not kill the consumer; everything behind it in
	// the backlog still needs to run.
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queued job panicked", slog.String("job", job.Name), slog.Any("panic", r))
		}
	}()
	if err := job.Run(ctx); err != nil {
		q.logger.Error("queued job failed", slog.String("job", job.Name), slog.String("err", err.Error()))
	}
}
