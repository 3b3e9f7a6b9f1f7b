package config

type RedisConfig struct {
	DB        int
	Url       string
	Password  string
	KeyPrefix string
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		DB:        getIntEnv("REDIS_DB", 0),
		Url:       getEnv("REDIS_ADDR", "localhost:6379"),
		Password:  getEnv("REDIS_PASSWORD", ""),
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "scenecast:"),
	}
}
