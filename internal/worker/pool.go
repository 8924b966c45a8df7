// Package worker provides the bounded pool that caps concurrent
// scraper executions across all discovery runs in the process.
package worker

import (
	"context"
	"sync"

	"github.com/jonesrussell/leadscout/internal/logger"
)

// Pool bounds concurrent task execution with a semaphore. Tasks
// submitted beyond the bound block until a slot frees, or until their
// context is done.
type Pool struct {
	logger logger.Interface
	sem    chan struct{}
	wg     sync.WaitGroup
}

// NewPool creates a pool running at most size tasks at once.
func NewPool(log logger.Interface, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		logger: log,
		sem:    make(chan struct{}, size),
	}
}

// Submit runs task on its own goroutine once a slot is free. It returns
// ctx.Err() without running the task if ctx is done before a slot
// opens. The task receives the same ctx and must honor cancellation
// itself; the pool never kills a running task.
func (p *Pool) Submit(ctx context.Context, task func(ctx context.Context)) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		task(ctx)
	}()

	return nil
}

// Detach runs task under grace instead of the submitting context, so a
// caller abandoning its wait does not cancel work that can still
// produce cacheable results. Admission still respects parent.
func (p *Pool) Detach(parent context.Context, grace context.Context, task func(ctx context.Context)) error {
	return p.Submit(parent, func(context.Context) {
		task(grace)
	})
}

// Wait blocks until all submitted tasks have finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
