package secondary

import (
	"context"

	"gitlab.com/scenecast.net/internal/domain"
)

// WorkerLauncher starts one external worker for an invocation. A nil error
// only means the run was accepted; completion is never observed here.
type WorkerLauncher interface {
	Launch(ctx context.Context, inv domain.WorkerInvocation) error
}
