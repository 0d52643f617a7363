package jobs

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 10

// ErrPoolClosed is returned by Enqueue after Stop.
var ErrPoolClosed = errors.New("worker pool is closed")

// task is a job plus an optional completion callback.
type task struct {
	job  *Job
	done func()
}

// WorkerPool runs jobs on a fixed set of goroutines fed by a bounded channel.
// Jobs run with no ordering guarantee; a panicking job is logged and does
// not take its worker down.
type WorkerPool struct {
	handler Handler
	workers int
	tasks   chan task

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewWorkerPool creates a pool with the given worker count and a queue of
// twice that many pending jobs.
func NewWorkerPool(handler Handler, workers int) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &WorkerPool{
		handler: handler,
		workers: workers,
		tasks:   make(chan task, workers*2),
	}
}

// Start launches the workers. Jobs run with ctx; workers keep draining the
// queue until Stop.
func (p *WorkerPool) Start(ctx context.Context) {
	slog.Info("Starting dispatch workers", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *WorkerPool) run(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.execute(ctx, t)
	}
}

func (p *WorkerPool) execute(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatch job panicked",
				"job_id", t.job.ID,
				"rule_id", t.job.RuleID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if t.done != nil {
			t.done()
		}
	}()
	p.handler.Dispatch(ctx, t.job)
}

// Enqueue submits a job, blocking while the queue is full.
func (p *WorkerPool) Enqueue(ctx context.Context, job *Job) error {
	return p.submit(ctx, task{job: job})
}

func (p *WorkerPool) submit(ctx context.Context, t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops accepting jobs and waits for queued ones to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	slog.Info("Dispatch workers stopped")
}

var _ Queue = (*WorkerPool)(nil)
