package pool

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Inflight is a global cap on concurrent operations shared by several
// pools. It records the highest concurrency it ever granted.
type Inflight struct {
	sem  *semaphore.Weighted
	cap  int64
	cur  atomic.Int64
	peak atomic.Int64
	done atomic.Int64
}

// NewInflight returns a cap of n concurrent operations. n below 1 means 1.
func NewInflight(n int) *Inflight {
	n = max(n, 1)
	return &Inflight{sem: semaphore.NewWeighted(int64(n)), cap: int64(n)}
}

// Do runs fn once a slot is free. It returns the context error without
// running fn when ctx ends first.
func (f *Inflight) Do(ctx context.Context, fn func() error) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer f.sem.Release(1)

	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer func() {
		f.cur.Add(-1)
		f.done.Add(1)
	}()
	return fn()
}

// Cap returns the configured limit.
func (f *Inflight) Cap() int { return int(f.cap) }

// Peak returns the highest number of operations that ran at once.
func (f *Inflight) Peak() int { return int(f.peak.Load()) }

// Completed returns how many operations finished.
func (f *Inflight) Completed() int { return int(f.done.Load()) }
