// Package jobs runs background work on a fixed pool of goroutines. A task
// carries only identifiers; the work itself lives in the database row the ID
// points at, so a task lost on shutdown can simply be resubmitted.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of queued work, typically a report job row.
type Task struct {
	ID          string
	Kind        string
	Attempt     int
	SubmittedAt time.Time
}

// HandlerFunc executes a task. A nil return marks the task done; an error
// triggers a retry until the attempt budget runs out.
type HandlerFunc func(context.Context, Task) error

// Options tunes the pool.
type Options struct {
	Workers int
	// QueueSize bounds how many tasks may wait before Submit blocks.
	QueueSize int
	// Retries is the number of re-attempts after the first failure.
	Retries int
	// Backoff is the base delay between attempts; the wait grows linearly
	// with the attempt count.
	Backoff time.Duration
	Logger  *zap.Logger
}

// Pool dispatches tasks to a fixed set of workers.
type Pool struct {
	name    string
	handler HandlerFunc
	workers int
	retries int
	backoff time.Duration
	logger  *zap.Logger

	tasks chan Task

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool builds a pool. Start must be called before Submit will accept
// tasks.
func NewPool(name string, handler HandlerFunc, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = opts.Workers * 4
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pool{
		name:    name,
		handler: handler,
		workers: opts.Workers,
		retries: opts.Retries,
		backoff: opts.Backoff,
		logger:  opts.Logger,
		tasks:   make(chan Task, opts.QueueSize),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.started = true
	p.logger.Info("worker pool started", zap.String("pool", p.name), zap.Int("workers", p.workers))
}

// Stop cancels the workers and waits for in-flight tasks to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("worker pool stopped", zap.String("pool", p.name))
}

// Submit hands a task to the pool, blocking while the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	ctx := p.ctx
	started := p.started
	p.mu.Unlock()

	if !started {
		return fmt.Errorf("%s pool is not running", p.name)
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s pool shutting down: %w", p.name, ctx.Err())
	case p.tasks <- task:
		return nil
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

// run executes one task, retrying in place with a linearly growing delay.
func (p *Pool) run(task Task) {
	for {
		err := p.handler(p.ctx, task)
		if err == nil {
			return
		}
		task.Attempt++
		if task.Attempt > p.retries {
			p.logger.Error("task abandoned",
				zap.String("pool", p.name), zap.String("task_id", task.ID),
				zap.String("kind", task.Kind), zap.Int("attempts", task.Attempt), zap.Error(err))
			return
		}
		p.logger.Warn("task failed, retrying",
			zap.String("pool", p.name), zap.String("task_id", task.ID),
			zap.String("kind", task.Kind), zap.Int("attempt", task.Attempt), zap.Error(err))
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(p.backoff * time.Duration(task.Attempt)):
		}
	}
}
