package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/queue"
)

func TestJobsRunInSubmissionOrder(t *testing.T) {
	t.Parallel()

	logger, _ := log.NewTestLogger(t)
	q := queue.New(context.Background(), 16, logger)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		err := q.Enqueue(queue.Job{
			Name: "job",
			Run: func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			},
		})
		require.NoError(t, err)
	}
	q.Close()

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestCloseDrainsBacklog(t *testing.T) {
	t.Parallel()

	logger, _ := log.NewTestLogger(t)
	q := queue.New(context.Background(), 16, logger)

	ran := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(queue.Job{
			Name: "job",
			Run: func(context.Context) error {
				ran++
				return nil
			},
		}))
	}
	q.Close()
	require.Equal(t, 5, ran)

	err := q.Enqueue(queue.Job{Name: "late", Run: func(context.Context) error { return nil }})
	require.ErrorIs(t, err, queue.ErrClosed)
}

func TestEnqueueReportsBackpressure(t *testing.T) {
	t.Parallel()

	logger, _ := log.NewTestLogger(t)
	q := queue.New(context.Background(), 1, logger)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, q.Enqueue(queue.Job{
		Name: "slow",
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	// The consumer is busy, so the single backlog slot fills and the next
	// enqueue must fail instead of blocking.
	require.NoError(t, q.Enqueue(queue.Job{Name: "queued", Run: func(context.Context) error { return nil }}))
	err := q.Enqueue(queue.Job{Name: "rejected", Run: func(context.Context) error { return nil }})
	require.ErrorIs(t, err, queue.ErrFull)

	close(release)
	q.Close()
}

func TestCancelStopsIntakeAndDrainsBacklog(t *testing.T) {
	t.Parallel()

	logger, _ := log.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.New(ctx, 4, logger)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, q.Enqueue(queue.Job{
		Name: "gate",
		Run: func(context.Context) error {
			close(started)
			<-release
			return nil
		},
	}))
	<-started

	var mu sync.Mutex
	ran := false
	var jobErr error
	require.NoError(t, q.Enqueue(queue.Job{
		Name: "backlog",
		Run: func(jctx context.Context) error {
			mu.Lock()
			ran = true
			jobErr = jctx.Err()
			mu.Unlock()
			return nil
		},
	}))

	// Cancel while the consumer is mid-job, then let it finish. The backlog
	// job was already accepted and must still run.
	cancel()
	close(release)
	q.Close()

	mu.Lock()
	require.True(t, ran, "accepted jobs survive context cancellation")
	require.NoError(t, jobErr, "drained jobs run on a live context")
	mu.Unlock()

	err := q.Enqueue(queue.Job{Name: "late", Run: func(context.Context) error { return nil }})
	require.ErrorIs(t, err, queue.ErrClosed)
}

func TestFailingJobDoesNotStopConsumer(t *testing.T) {
	t.Parallel()

	logger, handler := log.NewTestLogger(t)
	q := queue.New(context.Background(), 16, logger)

	require.NoError(t, q.Enqueue(queue.Job{
		Name: "boom",
		Run:  func(context.Context) error { return errors.New("boom") },
	}))
	require.NoError(t, q.Enqueue(queue.Job{
		Name: "panics",
		Run:  func(context.Context) error { panic("kaboom") },
	}))

	ran := false
	require.NoError(t, q.Enqueue(queue.Job{
		Name: "after",
		Run: func(context.Context) error {
			ran = true
			return nil
		},
	}))
	q.Close()

	require.True(t, ran, "jobs after a failure still run")
	require.NotEmpty(t, log.FindEntries(handler, func(e log.LoggedEntry) bool {
		return e.Msg == "queued job failed"
	}))
	require.NotEmpty(t, log.FindEntries(handler, func(e log.LoggedEntry) bool {
		return e.Msg == "queued job panicked"
	}))
}
