package gemini

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompt.yaml
var defaultTemplate []byte

// PromptTemplate wraps a user prompt with the generation instructions.
type PromptTemplate struct {
	Preamble     string   `yaml:"preamble"`
	Instructions []string `yaml:"instructions"`
}

// ParsePromptTemplate parses YAML content into a PromptTemplate
func ParsePromptTemplate(data []byte) (*PromptTemplate, error) {
	var tmpl PromptTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(tmpl.Preamble) == "" {
		return nil, fmt.Errorf("prompt template has no preamble")
	}
	return &tmpl, nil
}

// LoadPromptTemplate reads a template file, or the built-in one when path is empty.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return ParsePromptTemplate(defaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return ParsePromptTemplate(data)
}

// Render places the user prompt first, followed by the preamble and the
// bulleted instructions.
func (t *PromptTemplate) Render(userPrompt string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(userPrompt))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(t.Preamble))
	if len(t.Instructions) > 0 {
		b.WriteString("\n\nInstructions:\n")
		for _, line := range t.Instructions {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
