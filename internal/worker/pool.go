// Package worker runs queued tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("worker pool stopped")

// Handler processes one task. Its error is logged; it never stops the pool.
type Handler[T any] func(ctx context.Context, task T) error

// Pool owns the lifetime of every task it accepts: a submitted task runs to
// completion even while the pool is stopping.
type Pool[T any] struct {
	handler Handler[T]
	workers int
	queue   chan T

	mu      sync.RWMutex
	started bool
	stopped bool
	group   *errgroup.Group
}

// New returns a pool with the given concurrency and queue capacity.
func New[T any](workers, queueSize int, handler Handler[T]) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool[T]{
		handler: handler,
		workers: workers,
		queue:   make(chan T, queueSize),
	}
}

// Start launches the workers. ctx is handed to every task; cancelling it
// does not abandon queued tasks.
func (p *Pool[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.group = new(errgroup.Group)
	for i := 0; i < p.workers; i++ {
		worker := i
		p.group.Go(func() error {
			for task := range p.queue {
				p.run(ctx, worker, task)
			}
			return nil
		})
	}
	slog.Info("Worker pool started.", "workers", p.workers, "queueSize", cap(p.queue))
}

func (p *Pool[T]) run(ctx context.Context, worker int, task T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Task panicked.", "worker", worker, "panic", fmt.Sprint(r))
		}
	}()
	if err := p.handler(ctx, task); err != nil {
		slog.Error("Task failed.", "worker", worker, "error", err)
	}
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool[T]) Submit(ctx context.Context, task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new tasks and waits for every queued task to finish.
func (p *Pool[T]) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	group := p.group
	p.mu.Unlock()

	if group == nil {
		return nil
	}
	return group.Wait()
}
