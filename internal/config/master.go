package config

import "os"

type AppConfig struct {
	DebugMode       bool
	LogLevel        string
	HTTPConfig      *HTTPConfig
	StoreConfig     *StoreConfig
	RedisConfig     *RedisConfig
	PostgresConfig  *PostgresConfig
	LauncherConfig  *LauncherConfig
	PublishConfig   *PublishConfig
	GeneratorConfig *GeneratorConfig
	DispatchConfig  *DispatchConfig
	CallbackConfig  *CallbackConfig
	SweepConfig     *SweepConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:       os.Getenv("DEBUG_MODE") == "true",
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HTTPConfig:      NewHTTPConfig(),
		StoreConfig:     NewStoreConfig(),
		RedisConfig:     NewRedisConfig(),
		PostgresConfig:  NewPostgresConfig(),
		LauncherConfig:  NewLauncherConfig(),
		PublishConfig:   NewPublishConfig(),
		GeneratorConfig: NewGeneratorConfig(),
		DispatchConfig:  NewDispatchConfig(),
		CallbackConfig:  NewCallbackConfig(),
		SweepConfig:     NewSweepConfig(),
	}
}

// EffectiveLogLevel is LogLevel, raised to debug when DEBUG_MODE is on.
func (c *AppConfig) EffectiveLogLevel() string {
	if c.DebugMode {
		return "debug"
	}
	return c.LogLevel
}
