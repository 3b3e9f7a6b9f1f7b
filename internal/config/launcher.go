package config

// LauncherConfig points at the Cloud Run job that executes renders.
type LauncherConfig struct {
	ProjectID       string
	Region          string
	JobName         string
	ContainerName   string
	Endpoint        string
	MaxPayloadBytes int
	RatePerSec      float64
	RateBurst       int
}

func NewLauncherConfig() *LauncherConfig {
	return &LauncherConfig{
		ProjectID:       getEnv("GCP_PROJECT_ID", ""),
		Region:          getEnv("GCP_REGION", "asia-south2"),
		JobName:         getEnv("WORKER_JOB_NAME", "scenecast-worker"),
		ContainerName:   getEnv("WORKER_CONTAINER_NAME", "scenecast-worker"),
		Endpoint:        getEnv("CLOUD_RUN_ENDPOINT", ""),
		MaxPayloadBytes: getIntEnv("LAUNCH_MAX_PAYLOAD_BYTES", 32*1024),
		RatePerSec:      getFloatEnv("LAUNCH_RATE_PER_SEC", 0),
		RateBurst:       getIntEnv("LAUNCH_RATE_BURST", 1),
	}
}
