// Package renderer is the worker side of a job: it renders the generated
// script, publishes the video and reports the outcome.
package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gitlab.com/scenecast.net/internal/adapter/webhook"
	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
)

// ErrMissingInput is printed when the launcher did not provide a job.
const ErrMissingInput = "Missing required environment variables: JOB_ID or CODE"

type Worker struct {
	cfg       *config.WorkerConfig
	runner    Runner
	publisher secondary.ArtifactPublisher
	sender    webhook.Sender
	logger    primary.Logger
}

// NewWorker wires a worker. sender may be nil when no callback is configured.
func NewWorker(
	cfg *config.WorkerConfig,
	runner Runner,
	publisher secondary.ArtifactPublisher,
	sender webhook.Sender,
	logger primary.Logger,
) *Worker {
	return &Worker{
		cfg:       cfg,
		runner:    runner,
		publisher: publisher,
		sender:    sender,
		logger:    logger,
	}
}

// Run processes the job once and returns its result. The workspace is gone
// by the time Run returns, whatever happened.
func (w *Worker) Run(ctx context.Context) domain.WorkerResult {
	result := w.render(ctx)
	w.report(ctx, result)
	return result
}

func (w *Worker) render(ctx context.Context) (result domain.WorkerResult) {
	result = domain.WorkerResult{JobID: w.cfg.JobID, Code: w.cfg.Code}
	fail := func(format string, args ...interface{}) domain.WorkerResult {
		result.Status = domain.ResultStatusError
		result.Error = fmt.Sprintf(format, args...)
		return result
	}

	if w.cfg.JobID == "" || w.cfg.Code == "" {
		return fail(ErrMissingInput)
	}
	if !domain.ValidJobID(w.cfg.JobID) {
		return fail("Invalid job id %q", w.cfg.JobID)
	}

	w.logger.Info("Starting job", "jobId", w.cfg.JobID)
	ws, err := NewWorkspace(w.cfg.Root, w.cfg.JobID)
	if err != nil {
		return fail("%v", err)
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			w.logger.Error("Failed to clean up job directory", "dir", ws.Dir, "error", err)
			return
		}
		w.logger.Info("Cleaned up job directory", "dir", ws.Dir)
	}()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Worker panicked", "jobId", w.cfg.JobID, "panic", r)
			result = fail("%v", r)
		}
	}()

	script, err := ws.WriteScript(w.cfg.Code)
	if err != nil {
		return fail("%v", err)
	}

	command, args := w.renderCommand(script, ws.MediaDir)
	res, err := w.runner.Run(ctx, command, args, ws.Dir)
	if err != nil {
		if res != nil && res.TimedOut {
			return fail("Render timed out after %s", w.cfg.RenderTimeout)
		}
		return fail("Render failed: %v", err)
	}

	video, err := FindNewest(ws.MediaDir, w.cfg.OutputPattern)
	if err != nil {
		return fail("%v", err)
	}
	if video == "" {
		return fail("No video file found")
	}
	w.logger.Info("Video generated", "path", video)

	url, err := w.publisher.Publish(ctx, video, w.cfg.JobID)
	if err != nil {
		return fail("Failed to upload video: %v", err)
	}

	result.Status = domain.ResultStatusSuccess
	result.URL = url
	return result
}

func (w *Worker) renderCommand(script string, mediaDir string) (string, []string) {
	fields := strings.Fields(w.cfg.RenderCommand)
	if len(fields) == 0 {
		fields = []string{"manim"}
	}
	args := append(fields[1:len(fields):len(fields)],
		"-ql", script,
		"--log_to_file",
		"--disable_caching",
		"--media_dir", mediaDir,
	)
	return fields[0], args
}

func (w *Worker) report(ctx context.Context, result domain.WorkerResult) {
	if w.sender == nil || w.cfg.CallbackURL == "" {
		return
	}
	if err := w.sender.Notify(ctx, w.cfg.CallbackURL, w.cfg.CallbackToken, result); err != nil {
		w.logger.Error("Failed to report result", "jobId", result.JobID, "error", err)
		return
	}
	w.logger.Info("Result reported", "jobId", result.JobID)
}

// WriteResult prints the result as one JSON line, on stdout for a success and
// on stderr otherwise, and returns the process exit code.
func WriteResult(stdout io.Writer, stderr io.Writer, result domain.WorkerResult) int {
	line, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(stderr, "failed to encode result: %v\n", err)
		return 1
	}
	if result.Succeeded() {
		fmt.Fprintln(stdout, string(line))
		return 0
	}
	fmt.Fprintln(stderr, string(line))
	return 1
}
