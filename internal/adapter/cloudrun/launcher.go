// Package cloudrun launches render workers as Cloud Run job executions.
package cloudrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

// CloudPlatformScope is the OAuth scope needed to run jobs.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

const maxErrorBody = 64 * 1024

var _ secondary.WorkerLauncher = (*Launcher)(nil)

// LaunchError is returned when the Run API answers with a non-2xx status.
// Its message is the raw response body.
type LaunchError struct {
	StatusCode int
	Body       string
}

func (e *LaunchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("launch rejected with status %d", e.StatusCode)
	}
	return e.Body
}

type runRequest struct {
	Overrides overrides `json:"overrides"`
}

type overrides struct {
	ContainerOverrides []containerOverride `json:"containerOverrides"`
}

type containerOverride struct {
	Name string          `json:"name"`
	Env  []domain.EnvVar `json:"env"`
}

// Launcher posts "run" requests to the Cloud Run Admin API.
type Launcher struct {
	cfg         *config.LauncherConfig
	tokenSource oauth2.TokenSource
	client      *http.Client
	logger      primary.Logger
}

// NewLauncher resolves Google application default credentials once; a token
// is requested from them on every launch.
func NewLauncher(ctx context.Context, cfg *config.LauncherConfig, logger primary.Logger) (*Launcher, error) {
	creds, err := google.FindDefaultCredentials(ctx, CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = creds.ProjectID
	}
	return NewLauncherWithTokenSource(cfg, creds.TokenSource, &http.Client{Timeout: 30 * time.Second}, logger), nil
}

// NewLauncherWithTokenSource builds a launcher over an explicit token source.
func NewLauncherWithTokenSource(cfg *config.LauncherConfig, ts oauth2.TokenSource, client *http.Client, logger primary.Logger) *Launcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Launcher{
		cfg:         cfg,
		tokenSource: ts,
		client:      client,
		logger:      logger,
	}
}

// RunURL is the "run now" action of the configured job.
func (l *Launcher) RunURL() string {
	endpoint := l.cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-run.googleapis.com", l.cfg.Region)
	}
	return fmt.Sprintf("%s/apis/run.googleapis.com/v1/namespaces/%s/jobs/%s:run",
		strings.TrimRight(endpoint, "/"), l.cfg.ProjectID, l.cfg.JobName)
}

// Launch starts one job execution carrying the invocation as env overrides.
func (l *Launcher) Launch(ctx context.Context, inv domain.WorkerInvocation) error {
	if err := l.validate(inv.Code); err != nil {
		return err
	}

	body, err := json.Marshal(runRequest{
		Overrides: overrides{
			ContainerOverrides: []containerOverride{{
				Name: l.cfg.ContainerName,
				Env:  inv.Env(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run request: %w", err)
	}

	token, err := l.tokenSource.Token()
	if err != nil {
		l.logger.Error("Failed to obtain access token", "jobId", inv.JobID, "error", err)
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.RunURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build run request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Error("Run request failed", "jobId", inv.JobID, "error", err)
		return fmt.Errorf("failed to send run request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.logger.Warn("Run request rejected", "jobId", inv.JobID, "status", resp.StatusCode)
		return &LaunchError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	l.logger.Info("Worker launched", "jobId", inv.JobID, "job", l.cfg.JobName)
	return nil
}

func (l *Launcher) validate(code string) error {
	if l.cfg.MaxPayloadBytes > 0 && len(code) > l.cfg.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d bytes", errs.PayloadTooLarge, len(code), l.cfg.MaxPayloadBytes)
	}
	if !utf8.ValidString(code) {
		return errs.PayloadNotText
	}
	return nil
}
