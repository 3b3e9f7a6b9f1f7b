package taskpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
)

const tracerName = "gitlab.com/scenecast.net/taskpool"

// Middleware wraps a task body. It must call next unless it short-circuits.
type Middleware func(ctx context.Context, t *Task, next Func) error

// Chain composes middleware; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, t *Task, next Func) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, t, prev)
			}
		}
		return h(ctx)
	}
}

// Recover turns a panic anywhere below it into an error.
func Recover(logger primary.Logger) Middleware {
	return func(ctx context.Context, t *Task, next Func) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Task panicked",
					"task", t.Name,
					"taskId", t.ID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				retErr = fmt.Errorf("panic in task %s: %v", t.Name, r)
			}
		}()
		return next(ctx)
	}
}

// Timeout cancels the task context after d. A zero d is a pass-through.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, t *Task, next Func) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}

// Tracing wraps each task in a span from the global tracer provider, which is
// a noop unless one is installed.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, t *Task, next Func) error {
		ctx, span := tracer.Start(ctx, "taskpool.task.execute",
			trace.WithAttributes(
				attribute.String("taskpool.task.id", t.ID),
				attribute.String("taskpool.task.name", t.Name),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}
