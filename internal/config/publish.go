package config

import "gitlab.com/scenecast.net/internal/domain"

// PublishConfig holds the media host credentials forwarded to workers.
type PublishConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Endpoint  string
}

func NewPublishConfig() *PublishConfig {
	return &PublishConfig{
		CloudName: getEnv(domain.EnvCloudinaryCloudName, ""),
		APIKey:    getEnv(domain.EnvCloudinaryAPIKey, ""),
		APISecret: getEnv(domain.EnvCloudinaryAPISecret, ""),
		Endpoint:  getEnv("CLOUDINARY_ENDPOINT", "https://api.cloudinary.com"),
	}
}

func (c *PublishConfig) Credentials() domain.PublishCredentials {
	return domain.PublishCredentials{
		CloudName: c.CloudName,
		APIKey:    c.APIKey,
		APISecret: c.APISecret,
	}
}
