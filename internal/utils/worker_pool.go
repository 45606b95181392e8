package utils

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("worker pool is closed")

// WorkerPool runs submitted tasks on a fixed set of workers. Submission is
// bounded: when every worker is busy and the queue is full, Submit blocks
// until a slot frees or the caller's context expires, so a slow collection
// round cannot pile up unbounded work behind it.
type WorkerPool struct {
	jobs chan func()
	quit chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewWorkerPool starts a pool with the given number of workers and a queue of
// the same depth.
func NewWorkerPool(workers int) *WorkerPool {
	pool := &WorkerPool{
		jobs: make(chan func(), workers),
		quit: make(chan struct{}),
	}

	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker runs tasks until the pool shuts down.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case task := <-wp.jobs:
			task()
		case <-wp.quit:
			return
		}
	}
}

// Submit queues a task, blocking while the queue is full. It returns the
// context error when ctx expires first and ErrPoolClosed after Shutdown; the
// task runs only on a nil return.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.quit:
		return ErrPoolClosed
	default:
	}

	select {
	case wp.jobs <- task:
		return nil
	case <-wp.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the workers after their current task and waits for them to
// exit. Tasks still queued are dropped; callers that need completion must
// await their tasks before shutting down. Safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() { close(wp.quit) })
	wp.wg.Wait()
}
