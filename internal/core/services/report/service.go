package report

import (
	"context"

	"gitlab.com/scenecast.net/internal/domain"
)

// IReportService keeps the results workers send back after a launch.
type IReportService interface {
	// Accept stores the result of a worker for an existing job.
	Accept(ctx context.Context, jobID string, result domain.WorkerResult) (domain.WorkerReport, error)

	// Get returns the stored report, or errs.ReportNotFound.
	Get(ctx context.Context, jobID string) (domain.WorkerReport, error)
}
