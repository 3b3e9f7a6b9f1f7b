package config

import (
	"os"
	"time"

	"gitlab.com/scenecast.net/internal/domain"
)

// WorkerConfig is read by the worker process from the environment the
// launcher populated.
type WorkerConfig struct {
	JobID         string
	Code          string
	Root          string
	RenderCommand string
	RenderTimeout time.Duration
	OutputPattern string
	CallbackURL   string
	CallbackToken string
	ReportRetries int
	ReportTimeout time.Duration
	PublishConfig *PublishConfig
}

func NewWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		JobID:         os.Getenv(domain.EnvJobID),
		Code:          os.Getenv(domain.EnvCode),
		Root:          getEnv("WORKER_ROOT", os.TempDir()),
		RenderCommand: getEnv("RENDER_COMMAND", "manim"),
		RenderTimeout: getSecondsEnv("RENDER_TIMEOUT_SEC", 240),
		OutputPattern: getEnv("RENDER_OUTPUT_PATTERN", "videos/main/480p15/*.mp4"),
		CallbackURL:   os.Getenv(domain.EnvCallbackURL),
		CallbackToken: os.Getenv(domain.EnvCallbackToken),
		ReportRetries: getIntEnv("REPORT_MAX_RETRIES", 5),
		ReportTimeout: getSecondsEnv("REPORT_TIMEOUT_SEC", 10),
		PublishConfig: NewPublishConfig(),
	}
}
