// Package pool bounds the parallel work of the scan stages.
package pool

import (
	"context"
	"fmt"
	"sync"
)

// Result is the outcome of one unit of work. Err is set when the unit
// failed, panicked or never started because the context ended.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Run processes items with at most workers goroutines and returns one
// Result per item in input order. A failing unit never stops the others.
// Workers below 1 mean 1.
func Run[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	workers = max(1, min(workers, len(items)))

	idxCh := make(chan int, len(items))
	for i := range items {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range idxCh {
				// Each worker writes to a unique index, which is safe.
				results[i].Index = i
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = runOne(ctx, items[i], fn)
			}
		})
	}
	wg.Wait()
	return results
}

// runOne turns a panic in fn into an error so one bad unit cannot take
// down the stage.
func runOne[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (out R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return fn(ctx, item)
}

// Values returns the values of successful results.
func Values[R any](results []Result[R]) []R {
	out := make([]R, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}
