// Package webhook delivers worker results back to the dispatcher.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gitlab.com/scenecast.net/internal/domain"
)

type Sender interface {
	Notify(ctx context.Context, url string, token string, result domain.WorkerResult) error
}

type httpsender struct {
	client      *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

func NewHTTPSender(timeout time.Duration, maxRetries int) Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 3
	}
	return &httpsender{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		baseBackoff: 500 * time.Millisecond,
	}
}

// Notify POSTs the result with the bearer token, retrying non-2xx answers
// with exponential backoff. A 4xx other than 429 is final.
func (s *httpsender) Notify(ctx context.Context, url string, token string, result domain.WorkerResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if token != "" {
			req.Header.Set("authorization", "Bearer "+token)
		}
		resp, err := s.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			return nil
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err == nil {
			lastErr = errors.New(resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return lastErr
			}
		} else {
			lastErr = err
		}
		if attempt == s.maxRetries {
			break
		}
		// exponential backoff with jitter
		backoff := s.baseBackoff * (1 << attempt)
		select {
		case <-time.After(backoff + time.Duration(int64(time.Millisecond)*int64(attempt*50))):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
