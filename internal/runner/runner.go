// Package runner coordinates the long-running stages of the pipeline.
package runner

import (
	"context"
	"sync"
)

// Worker defines something that runs until its context is cancelled and
// returns an error on failure.
type Worker interface {
	Start(ctx context.Context) error
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context) error

// Start implements Worker.
func (f WorkerFunc) Start(ctx context.Context) error {
	return f(ctx)
}

// Runner starts workers concurrently and reports the first failure.
type Runner struct {
	mu      sync.Mutex
	workers []Worker
	wg      sync.WaitGroup
	errCh   chan error
}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{
		errCh: make(chan error, 1), // buffer size 1 to avoid blocking on first error
	}
}

// AddWorker adds a Worker to be run later.
func (r *Runner) AddWorker(worker Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = append(r.workers, worker)
}

// Run starts all added workers and waits until they all return, one of
// them fails, or the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	workers := append([]Worker(nil), r.workers...)
	r.mu.Unlock()

	for _, w := range workers {
		r.runWorker(ctx, w)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// Workers shut down on the same cancellation; wait for their
		// cleanup to finish before letting the process exit.
		<-done
		return nil
	case err := <-r.errCh:
		return err
	case <-done:
		return nil
	}
}

func (r *Runner) runWorker(ctx context.Context, worker Worker) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := worker.Start(ctx); err != nil {
			r.sendError(err)
		}
	}()
}

// sendError keeps only the first encountered error.
func (r *Runner) sendError(err error) {
	select {
	case r.errCh <- err:
	default:
	}
}
