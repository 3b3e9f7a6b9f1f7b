package cloudrun

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
)

var _ secondary.WorkerLauncher = (*ThrottledLauncher)(nil)

// ThrottledLauncher keeps launches under a sustained rate so a burst of
// submissions does not trip the Run API quota. Waiting happens on the
// caller's goroutine, which is always a background task.
type ThrottledLauncher struct {
	next    secondary.WorkerLauncher
	limiter *rate.Limiter
}

// NewThrottledLauncher wraps next with a token bucket. A burst below 1 is raised to 1.
func NewThrottledLauncher(next secondary.WorkerLauncher, perSecond float64, burst int) *ThrottledLauncher {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledLauncher{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *ThrottledLauncher) Launch(ctx context.Context, inv domain.WorkerInvocation) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("launch throttled: %w", err)
	}
	return t.next.Launch(ctx, inv)
}
