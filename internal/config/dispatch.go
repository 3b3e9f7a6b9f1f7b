package config

import "time"

type DispatchConfig struct {
	// Concurrency bounds the background tasks running at once. Zero means unbounded.
	Concurrency int
	// TaskTimeout cancels a background task after the duration. Zero disables it.
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func NewDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		Concurrency:     getIntEnv("DISPATCH_CONCURRENCY", 0),
		TaskTimeout:     getSecondsEnv("TASK_TIMEOUT_SEC", 0),
		ShutdownTimeout: getSecondsEnv("SHUTDOWN_TIMEOUT_SEC", 5),
	}
}
