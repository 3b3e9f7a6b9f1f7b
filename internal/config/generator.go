package config

type GeneratorConfig struct {
	APIKey       string
	Model        string
	Endpoint     string
	TemplateFile string
}

func NewGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		APIKey:       getEnv("GEMINI_API_KEY", ""),
		Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		Endpoint:     getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com"),
		TemplateFile: getEnv("PROMPT_TEMPLATE_FILE", ""),
	}
}
