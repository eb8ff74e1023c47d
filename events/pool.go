package events

import (
	"context"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"jurix/logging"
)

// Task is a unit of work run on a pool worker
type Task func(ctx context.Context)

// Pool runs tasks on a fixed set of workers fed by a bounded queue.
// TrySubmit never blocks; a full queue rejects the task.
type Pool struct {
	queue  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of queueSize tasks
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
		g:      &errgroup.Group{},
	}

	for i := 0; i < workers; i++ {
		p.g.Go(func() error {
			for task := range p.queue {
				p.run(task)
			}
			return nil
		})
	}
	return p
}

// run executes one task; a panic is logged and never kills the worker
func (p *Pool) run(task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("worker task panicked", "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	task(p.ctx)
}

// TrySubmit queues the task, reporting false if the pool is full or closed
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- task:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued tasks not yet picked up
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Close stops accepting tasks and waits for queued ones to finish. If ctx
// ends first, running tasks see their context cancelled and ctx.Err() is
// returned once they exit.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
