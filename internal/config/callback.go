package config

import "time"

type CallbackConfig struct {
	// BaseURL is the externally reachable dispatcher address. Empty disables worker reports.
	BaseURL  string
	Secret   string
	TokenTTL time.Duration
}

func NewCallbackConfig() *CallbackConfig {
	return &CallbackConfig{
		BaseURL:  getEnv("CALLBACK_BASE_URL", ""),
		Secret:   getEnv("CALLBACK_SECRET", ""),
		TokenTTL: getSecondsEnv("CALLBACK_TOKEN_TTL_SEC", 24*60*60),
	}
}

func (c *CallbackConfig) Enabled() bool {
	return c.BaseURL != "" && c.Secret != ""
}
