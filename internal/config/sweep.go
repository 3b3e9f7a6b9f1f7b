package config

import "time"

type SweepConfig struct {
	// TTL is how long an untouched record is kept. Zero keeps records forever.
	TTL      time.Duration
	Schedule string
}

func NewSweepConfig() *SweepConfig {
	return &SweepConfig{
		TTL:      getSecondsEnv("JOB_TTL_SEC", 0),
		Schedule: getEnv("JOB_SWEEP_SCHEDULE", "@every 10m"),
	}
}
