package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
	"gitlab.com/scenecast.net/internal/taskpool"
)

var _ IDispatchService = (*DispatchService)(nil)

const (
	taskName       = "dispatch"
	maxIDAttempts  = 5
	reportPathTmpl = "%s/jobs/%s/report"
)

// DispatchService implements IDispatchService
type DispatchService struct {
	store       secondary.JobStore
	generator   secondary.Generator
	launcher    secondary.WorkerLauncher
	pool        *taskpool.Pool
	notifier    *StatusNotifier
	credentials domain.PublishCredentials
	logger      primary.Logger

	callbackBaseURL string
	tokens          primary.JWTService
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	store secondary.JobStore,
	generator secondary.Generator,
	launcher secondary.WorkerLauncher,
	pool *taskpool.Pool,
	notifier *StatusNotifier,
	credentials domain.PublishCredentials,
	logger primary.Logger,
) *DispatchService {
	return &DispatchService{
		store:       store,
		generator:   generator,
		launcher:    launcher,
		pool:        pool,
		notifier:    notifier,
		credentials: credentials,
		logger:      logger,
	}
}

// SetCallback makes every launched worker receive a report URL under baseURL
// and a token minted by tokens.
func (s *DispatchService) SetCallback(baseURL string, tokens primary.JWTService) {
	s.callbackBaseURL = strings.TrimRight(baseURL, "/")
	s.tokens = tokens
}

// Submit stores a pending record and schedules the background task
func (s *DispatchService) Submit(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errs.EmptyPrompt
	}

	jobID, err := s.newJobID(ctx)
	if err != nil {
		return "", err
	}

	if err := s.store.Put(ctx, jobID, domain.PendingRecord()); err != nil {
		s.logger.Error("Failed to store pending job", "jobId", jobID, "error", err)
		return "", fmt.Errorf("failed to store job: %w", err)
	}
	JobsSubmittedTotal.Inc()
	JobTransitionsTotal.WithLabelValues(string(domain.JobStatusPending)).Inc()

	s.logger.Info("Job accepted", "jobId", jobID, "promptBytes", len(prompt))

	task := s.pool.Go(ctx, taskName, func(ctx context.Context) error {
		return s.execute(ctx, jobID, prompt)
	})
	go s.settle(ctx, jobID, task)

	return jobID, nil
}

// settle fails a job whose task ended without recording an outcome, as when
// the pool refused it or cancelled it before it got a slot.
func (s *DispatchService) settle(ctx context.Context, jobID string, task *taskpool.Task) {
	ctx = context.WithoutCancel(ctx)
	taskErr := task.Wait(ctx)
	if taskErr == nil {
		return
	}
	rec, found, err := s.store.Get(ctx, jobID)
	if err != nil || !found || rec.Status != domain.JobStatusPending {
		return
	}
	s.logger.Warn("Task ended before the job settled", "jobId", jobID, "error", taskErr)
	if err := s.transition(ctx, jobID, domain.FailedRecord(taskErr.Error())); err != nil && !errors.Is(err, errs.InvalidJobState) {
		s.logger.Error("Failed to record job failure", "jobId", jobID, "error", err)
	}
}

func (s *DispatchService) newJobID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		jobID := domain.NewJobID()
		_, found, err := s.store.Get(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("failed to check job id: %w", err)
		}
		if !found {
			return jobID, nil
		}
		s.logger.Warn("Job id collision, generating another", "jobId", jobID)
	}
	return "", fmt.Errorf("failed to allocate a job id after %d attempts", maxIDAttempts)
}

// GetStatus returns the record of a job
func (s *DispatchService) GetStatus(ctx context.Context, jobID string) (domain.JobRecord, error) {
	if !domain.ValidJobID(jobID) {
		return domain.JobRecord{}, errs.JobNotFound
	}
	rec, found, err := s.store.Get(ctx, jobID)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("failed to get job: %w", err)
	}
	if !found {
		return domain.JobRecord{}, errs.JobNotFound
	}
	return rec, nil
}

// Watch streams records of a job until it leaves pending
func (s *DispatchService) Watch(ctx context.Context, jobID string) (<-chan domain.JobRecord, error) {
	updates, unsubscribe := s.notifier.Subscribe(jobID)

	current, err := s.GetStatus(ctx, jobID)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan domain.JobRecord, 1)
	go func() {
		defer close(out)
		defer unsubscribe()

		send := func(rec domain.JobRecord) bool {
			select {
			case out <- rec:
				return rec.Status == domain.JobStatusPending
			case <-ctx.Done():
				return false
			}
		}

		if !send(current) {
			return
		}
		for {
			select {
			case rec := <-updates:
				if !send(rec) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// execute is the body of a background task. Failures the job can explain are
// recorded by process; anything else, panics included, ends up here.
func (s *DispatchService) execute(ctx context.Context, jobID string, prompt string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
			s.logger.Error("Dispatch task panicked", "jobId", jobID, "panic", r)
		}
		if err != nil && !errors.Is(err, errs.InvalidJobState) {
			if ferr := s.transition(ctx, jobID, domain.FailedRecord(err.Error())); ferr != nil {
				s.logger.Error("Failed to record job failure", "jobId", jobID, "error", ferr)
			}
		}
	}()
	return s.process(ctx, jobID, prompt)
}

func (s *DispatchService) process(ctx context.Context, jobID string, prompt string) error {
	explanation, code, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("Generation failed", "jobId", jobID, "error", err)
		return s.transition(ctx, jobID, domain.FailedRecord(errs.NoCodeGenerated.Error()))
	}
	if code == "" {
		s.logger.Warn("Generation returned no code", "jobId", jobID)
		return s.transition(ctx, jobID, domain.FailedRecord(errs.NoCodeGenerated.Error()))
	}

	inv, err := s.invocation(ctx, jobID, code)
	if err != nil {
		s.logger.Error("Failed to prepare worker invocation", "jobId", jobID, "error", err)
		return s.transition(ctx, jobID, domain.FailedRecord(err.Error()))
	}

	start := time.Now()
	err = s.launcher.Launch(ctx, inv)
	LaunchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error("Worker launch failed", "jobId", jobID, "error", err)
		return s.transition(ctx, jobID, domain.FailedRecord(err.Error()))
	}

	s.logger.Info("Job running", "jobId", jobID)
	return s.transition(ctx, jobID, domain.RunningRecord(explanation))
}

func (s *DispatchService) invocation(ctx context.Context, jobID string, code string) (domain.WorkerInvocation, error) {
	inv := domain.WorkerInvocation{
		JobID:       jobID,
		Code:        code,
		Credentials: s.credentials,
	}
	if s.callbackBaseURL == "" || s.tokens == nil {
		return inv, nil
	}
	token, err := s.tokens.GenerateJobToken(ctx, jobID)
	if err != nil {
		return inv, fmt.Errorf("failed to mint callback token: %w", err)
	}
	inv.Callback = domain.Callback{
		URL:   fmt.Sprintf(reportPathTmpl, s.callbackBaseURL, jobID),
		Token: token,
	}
	return inv, nil
}

// transition commits next if the current status allows it. The write ignores
// cancellation of ctx so a timed out task still records its outcome.
func (s *DispatchService) transition(ctx context.Context, jobID string, next domain.JobRecord) error {
	err := s.store.Update(context.WithoutCancel(ctx), jobID, func(current domain.JobRecord) (domain.JobRecord, error) {
		if !domain.CanTransition(current.Status, next.Status) {
			return current, fmt.Errorf("%w: %s to %s", errs.InvalidJobState, current.Status, next.Status)
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, errs.InvalidJobState) {
			s.logger.Warn("Dropped job transition", "jobId", jobID, "error", err)
		}
		return err
	}

	JobTransitionsTotal.WithLabelValues(string(next.Status)).Inc()
	s.notifier.Publish(jobID, next)
	return nil
}
