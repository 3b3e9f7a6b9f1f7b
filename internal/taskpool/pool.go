// Package taskpool runs fire-and-forget background tasks with bounded
// concurrency, a middleware chain and a graceful shutdown.
package taskpool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/static/errs"
)

// Func is the body of a background task.
type Func func(ctx context.Context) error

// Task is the handle of a scheduled task. Err is only meaningful once Done
// is closed.
type Task struct {
	ID        string
	Name      string
	CreatedAt time.Time

	done chan struct{}
	err  error
}

func newTask(name string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task result, or nil while it is still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finished or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Pool struct {
	sem         *semaphore.Weighted
	concurrency int
	middleware  []Middleware
	logger      primary.Logger

	base   context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

type Option func(*Pool)

// WithConcurrency bounds how many task bodies run at once. Tasks above the
// bound wait inside their own goroutine, so Go never blocks.
func WithConcurrency(n int) Option {
	return func(p *Pool) { p.concurrency = n }
}

// WithMiddleware appends middleware; the first one is the outermost.
func WithMiddleware(mws ...Middleware) Option {
	return func(p *Pool) { p.middleware = append(p.middleware, mws...) }
}

func New(logger primary.Logger, opts ...Option) *Pool {
	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		base:   base,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrency > 0 {
		p.sem = semaphore.NewWeighted(int64(p.concurrency))
	}
	return p
}

// Go schedules fn and returns immediately. The task context keeps the values
// of ctx but not its cancellation, so a finished request does not abort the
// work it started. Tasks are only cancelled by their own middleware or by
// Stop running out of time.
func (p *Pool) Go(ctx context.Context, name string, fn Func) *Task {
	task := newTask(name)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		task.finish(errs.PoolStopped)
		return task
	}
	p.wg.Add(1)
	p.mu.Unlock()

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopCancel := context.AfterFunc(p.base, cancel)

	go func() {
		defer p.wg.Done()
		defer stopCancel()
		defer cancel()
		task.finish(p.run(taskCtx, task, fn))
	}()
	return task
}

func (p *Pool) run(ctx context.Context, task *Task, fn Func) error {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
	}
	return Chain(p.middleware...)(ctx, task, fn)
}

// Stop refuses new tasks and waits for running ones. When ctx is done first
// the remaining tasks are cancelled and Stop waits for them to return.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	p.logger.Info("Task pool stopping")

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Task pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Task pool shutdown timed out, cancelling running tasks")
		p.cancel()
		<-done
		return ctx.Err()
	}
}
