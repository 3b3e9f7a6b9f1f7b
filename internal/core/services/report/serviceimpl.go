package report

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

var _ IReportService = (*ReportService)(nil)

// ReportService implements IReportService. Reports live in their own store,
// the job record is only read.
type ReportService struct {
	jobs    secondary.JobStore
	reports secondary.ReportStore
	logger  primary.Logger
	now     func() time.Time
}

func NewReportService(jobs secondary.JobStore, reports secondary.ReportStore, logger primary.Logger) *ReportService {
	return &ReportService{
		jobs:    jobs,
		reports: reports,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ReportService) Accept(ctx context.Context, jobID string, result domain.WorkerResult) (domain.WorkerReport, error) {
	if _, found, err := s.jobs.Get(ctx, jobID); err != nil {
		return domain.WorkerReport{}, fmt.Errorf("failed to get job: %w", err)
	} else if !found {
		return domain.WorkerReport{}, errs.JobNotFound
	}

	if result.JobID == "" {
		result.JobID = jobID
	}
	if result.JobID != jobID {
		return domain.WorkerReport{}, fmt.Errorf("%w: report is for job %s", errs.InvalidReport, result.JobID)
	}
	switch result.Status {
	case domain.ResultStatusSuccess:
		if result.URL == "" {
			return domain.WorkerReport{}, fmt.Errorf("%w: success without url", errs.InvalidReport)
		}
	case domain.ResultStatusError:
	default:
		return domain.WorkerReport{}, fmt.Errorf("%w: unknown status %q", errs.InvalidReport, result.Status)
	}

	report := domain.WorkerReport{Result: result, ReceivedAt: s.now().UTC()}
	if err := s.reports.Put(ctx, jobID, report); err != nil {
		return domain.WorkerReport{}, fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("Worker report received", "jobId", jobID, "status", result.Status, "url", result.URL)
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, jobID string) (domain.WorkerReport, error) {
	report, found, err := s.reports.Get(ctx, jobID)
	if err != nil {
		return domain.WorkerReport{}, fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return domain.WorkerReport{}, errs.ReportNotFound
	}
	return report, nil
}
