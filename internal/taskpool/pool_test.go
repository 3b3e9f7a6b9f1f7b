package taskpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/static/errs"
)

func TestGoDoesNotBlock(t *testing.T) {
	p := New(logging.NewNopLogger(), WithConcurrency(1))
	release := make(chan struct{})

	start := time.Now()
	tasks := make([]*Task, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, p.Go(context.Background(), "block", func(ctx context.Context) error {
			<-release
			return nil
		}))
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Go blocked for %s", elapsed)
	}

	close(release)
	for _, task := range tasks {
		if err := task.Wait(context.Background()); err != nil {
			t.Errorf("task %s: %v", task.ID, err)
		}
	}
}

func TestConcurrencyBound(t *testing.T) {
	p := New(logging.NewNopLogger(), WithConcurrency(2))
	var running, peak int32

	tasks := make([]*Task, 0, 10)
	for i := 0; i < 10; i++ {
		tasks = append(tasks, p.Go(context.Background(), "bounded", func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}))
	}
	for _, task := range tasks {
		<-task.Done()
	}
	if peak > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak)
	}
}

func TestTaskOutlivesRequestContext(t *testing.T) {
	p := New(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	task := p.Go(ctx, "detached", func(ctx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return ctx.Err()
	})
	<-started
	cancel()

	if err := task.Wait(context.Background()); err != nil {
		t.Fatalf("task context was cancelled with its caller: %v", err)
	}
}

func TestTaskErr(t *testing.T) {
	p := New(logging.NewNopLogger())
	boom := errors.New("boom")
	release := make(chan struct{})

	task := p.Go(context.Background(), "failing", func(ctx context.Context) error {
		<-release
		return boom
	})
	if task.Err() != nil {
		t.Fatal("expected nil error while running")
	}
	close(release)
	<-task.Done()
	if !errors.Is(task.Err(), boom) {
		t.Fatalf("expected boom, got %v", task.Err())
	}
}

func TestStopWaitsForTasks(t *testing.T) {
	p := New(logging.NewNopLogger())
	var finished int32
	p.Go(context.Background(), "slow", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return nil
	})

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("Stop returned before the task finished")
	}

	task := p.Go(context.Background(), "late", func(ctx context.Context) error { return nil })
	<-task.Done()
	if !errors.Is(task.Err(), errs.PoolStopped) {
		t.Fatalf("expected PoolStopped, got %v", task.Err())
	}
}

func TestStopCancelsAtDeadline(t *testing.T) {
	p := New(logging.NewNopLogger())
	task := p.Go(context.Background(), "stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !errors.Is(task.Err(), context.Canceled) {
		t.Fatalf("expected task to be cancelled, got %v", task.Err())
	}
}
