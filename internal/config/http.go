package config

type HTTPConfig struct {
	Port        int
	ServiceName string
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Empty disables CORS headers.
	AllowedOrigin string
}

func NewHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:          getIntEnv("PORT", 8080),
		ServiceName:   getEnv("SERVICE_NAME", "scenecast"),
		AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
	}
}
