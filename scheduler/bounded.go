package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

/*
Bounded runs each task on its own goroutine, with at most limit tasks in
flight. A task submitted while the limit is reached is rejected rather than
queued: callers of background work never wait for it.
*/
type Bounded struct {
	limit int64
	sem   *semaphore.Weighted
}

// NewBounded creates a Bounded executor. A limit <= 0 means GOMAXPROCS.
func NewBounded(limit int) *Bounded {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Bounded{
		limit: int64(limit),
		sem:   semaphore.NewWeighted(int64(limit)),
	}
}

var shared = NewBounded(0)

// Shared returns the process-wide executor used when none is configured.
func Shared() *Bounded { return shared }

func (b *Bounded) Submit(task func()) bool {
	if !b.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer b.sem.Release(1)
		task()
	}()
	return true
}

// Limit returns the maximum number of tasks in flight.
func (b *Bounded) Limit() int { return int(b.limit) }

// Wait blocks until every submitted task has finished or ctx is done.
func (b *Bounded) Wait(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, b.limit); err != nil {
		return err
	}
	b.sem.Release(b.limit)
	return nil
}
