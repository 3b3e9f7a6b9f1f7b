// Package cloudinary uploads rendered videos with the signed upload API.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
)

var _ secondary.ArtifactPublisher = (*Publisher)(nil)

const (
	resourceType    = "video"
	maxResponseBody = 1 << 20
)

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Publisher struct {
	cfg    *config.PublishConfig
	client *http.Client
	logger primary.Logger
	now    func() time.Time
}

func NewPublisher(cfg *config.PublishConfig, client *http.Client, logger primary.Logger) *Publisher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Publisher{cfg: cfg, client: client, logger: logger, now: time.Now}
}

// PublicID names an upload after the upload time and the job.
func PublicID(at time.Time, jobID string) string {
	return fmt.Sprintf("%d/%s", at.Unix(), jobID)
}

// Sign computes the upload signature: the sorted parameters joined as
// key=value pairs with '&', followed by the API secret, hashed with SHA-1.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// Publish uploads the file at path and returns its secure URL.
func (p *Publisher) Publish(ctx context.Context, path string, jobID string) (string, error) {
	if p.cfg.CloudName == "" || p.cfg.APIKey == "" || p.cfg.APISecret == "" {
		return "", fmt.Errorf("media host credentials are not configured")
	}

	now := p.now()
	params := map[string]string{
		"public_id": PublicID(now, jobID),
		"timestamp": strconv.FormatInt(now.Unix(), 10),
	}

	body, contentType, err := p.multipartBody(path, params)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1_1/%s/%s/upload", strings.TrimRight(p.cfg.Endpoint, "/"), p.cfg.CloudName, resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	p.logger.Info("Uploading artifact", "jobId", jobID, "publicId", params["public_id"])
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}
	var out uploadResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode upload response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("upload rejected: %s", out.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("upload response has no secure_url")
	}
	return out.SecureURL, nil
}

func (p *Publisher) multipartBody(path string, params map[string]string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("api_key", p.cfg.APIKey); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("signature", Sign(params, p.cfg.APISecret)); err != nil {
		return nil, "", err
	}

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
