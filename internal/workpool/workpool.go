// Package workpool runs blocking calls on a bounded set of goroutines so the
// caller can keep observing cancellation while the call is in flight.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 4

// Pool bounds the number of concurrently running blocking calls.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a Pool with room for size concurrent calls.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return p.size }

// Do runs fn on a pool goroutine and waits for it. It returns early with
// ctx.Err() when ctx is cancelled, in which case fn keeps its slot until it
// returns on its own. A panic in fn is converted into an error.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("workpool: panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{val: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		return r.val, r.err
	}
}
