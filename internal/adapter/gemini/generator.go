// Package gemini generates animation scripts with the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
)

var _ secondary.Generator = (*Generator)(nil)

const maxResponseBody = 4 << 20

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generator calls models/{model}:generateContent and splits the answer.
type Generator struct {
	cfg      *config.GeneratorConfig
	template *PromptTemplate
	client   *http.Client
	logger   primary.Logger
}

// NewGenerator creates a Generator. A nil client gets a 60 second timeout.
func NewGenerator(cfg *config.GeneratorConfig, template *PromptTemplate, client *http.Client, logger primary.Logger) *Generator {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Generator{
		cfg:      cfg,
		template: template,
		client:   client,
		logger:   logger,
	}
}

// Generate returns the explanation and script for a user prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, string, error) {
	text, err := g.complete(ctx, g.template.Render(prompt))
	if err != nil {
		return "", "", err
	}
	explanation, code := ExtractExplanationAndCode(text)
	g.logger.Debug("Generation finished", "codeBytes", len(code), "explanationBytes", len(explanation))
	return explanation, code, nil
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call generate API: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode generate response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if out.Error != nil {
			return "", fmt.Errorf("generate API error %d: %s", out.Error.Code, out.Error.Message)
		}
		return "", fmt.Errorf("generate API returned status %d", resp.StatusCode)
	}

	if len(out.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
