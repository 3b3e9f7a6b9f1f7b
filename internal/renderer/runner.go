package renderer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
)

const maxLoggedOutput = 1000

// ExecutionResult contains the result of command execution
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

type Runner interface {
	Run(ctx context.Context, command string, args []string, workingDir string) (*ExecutionResult, error)
}

type execRunner struct {
	timeout time.Duration
	logger  primary.Logger
}

// NewExecRunner runs commands with os/exec, killing them after timeout.
// A zero timeout only relies on ctx.
func NewExecRunner(timeout time.Duration, logger primary.Logger) Runner {
	return &execRunner{timeout: timeout, logger: logger}
}

func (er *execRunner) Run(ctx context.Context, command string, args []string, workingDir string) (*ExecutionResult, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("command must not be empty")
	}
	if er.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, er.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workingDir
	// Children of the render tool may keep the output pipes open after a kill.
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	er.logger.Info("Starting render", "command", command, "args", args)
	start := time.Now()
	err := cmd.Run()
	result := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
		} else {
			result.ExitCode = -1
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
			err = fmt.Errorf("command timed out after %s", er.timeout)
		} else {
			err = fmt.Errorf("command execution failed: %w", err)
		}
	}

	er.logResult(result, err)
	return result, err
}

func (er *execRunner) logResult(result *ExecutionResult, err error) {
	attrs := []interface{}{
		"exitCode", result.ExitCode,
		"duration", result.Duration.String(),
		"stdout", truncate(result.Stdout),
		"stderr", truncate(result.Stderr),
	}
	if err != nil {
		er.logger.Error("Render command failed", append(attrs, "error", err.Error())...)
		return
	}
	er.logger.Info("Render command completed", attrs...)
}

func truncate(s string) string {
	if len(s) > maxLoggedOutput {
		return "(truncated) ..." + s[len(s)-maxLoggedOutput:]
	}
	return s
}
