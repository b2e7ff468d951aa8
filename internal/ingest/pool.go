package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// Task is a unit of processing work executed on a pool worker.
type Task func(ctx context.Context)

// Pool is a bounded worker pool. Submissions beyond the queue capacity fail
// fast with ErrQueueFull instead of blocking the caller; the HTTP layer
// turns that into a 503 so clients can retry.
type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines consuming a queue of the given
// capacity. The pool runs until Close.
func NewPool(workers, capacity int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:  make(chan Task, capacity),
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for task := range p.tasks {
				func() {
					defer func() {
						if r := recover(); r != nil {
							logger.Error("worker panic recovered", "worker", worker, "panic", r)
						}
					}()
					task(ctx)
				}()
			}
		}(i)
	}
	return p
}

// Submit enqueues a task without blocking. Returns ErrQueueFull when the
// queue is at capacity and an error after Close.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("pool closed: %w", document.ErrQueueFull)
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return document.ErrQueueFull
	}
}

// Close stops accepting work, cancels the worker context for in-flight
// tasks, and waits for workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// QueueDepth reports the number of queued, unstarted tasks.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}
