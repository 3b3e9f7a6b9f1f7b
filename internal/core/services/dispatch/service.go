package dispatch

import (
	"context"

	"gitlab.com/scenecast.net/internal/domain"
)

// IDispatchService accepts prompts, drives each job through generation and
// worker launch in the background, and answers status lookups.
type IDispatchService interface {
	// Submit records a pending job and schedules its background task. It
	// returns as soon as the pending record is stored.
	Submit(ctx context.Context, prompt string) (string, error)

	// GetStatus returns the current record, or errs.JobNotFound.
	GetStatus(ctx context.Context, jobID string) (domain.JobRecord, error)

	// Watch streams the current record and every later one until the job
	// leaves pending or ctx is done. The channel is closed afterwards.
	Watch(ctx context.Context, jobID string) (<-chan domain.JobRecord, error)
}
