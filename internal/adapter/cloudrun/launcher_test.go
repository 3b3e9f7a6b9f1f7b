package cloudrun

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/static/errs"
)

func testConfig(endpoint string) *config.LauncherConfig {
	return &config.LauncherConfig{
		ProjectID:       "demo-project",
		Region:          "asia-south2",
		JobName:         "scenecast-worker",
		ContainerName:   "scenecast-worker",
		Endpoint:        endpoint,
		MaxPayloadBytes: 1024,
	}
}

func testInvocation() domain.WorkerInvocation {
	return domain.WorkerInvocation{
		JobID:       "1a2b3c4d",
		Code:        "from manim import *",
		Credentials: domain.PublishCredentials{CloudName: "cloud", APIKey: "key", APISecret: "secret"},
	}
}

func TestRunURL(t *testing.T) {
	l := NewLauncherWithTokenSource(testConfig(""), nil, nil, logging.NewNopLogger())
	want := "https://asia-south2-run.googleapis.com/apis/run.googleapis.com/v1/namespaces/demo-project/jobs/scenecast-worker:run"
	if got := l.RunURL(); got != want {
		t.Errorf("RunURL() = %s, want %s", got, want)
	}
}

func TestLaunchSendsRunRequest(t *testing.T) {
	var got runRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/apis/run.googleapis.com/v1/namespaces/demo-project/jobs/scenecast-worker:run" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"metadata":{"name":"exec-1"}}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	l := NewLauncherWithTokenSource(testConfig(srv.URL), ts, srv.Client(), logging.NewNopLogger())

	if err := l.Launch(context.Background(), testInvocation()); err != nil {
		t.Fatalf("launch: %v", err)
	}

	if len(got.Overrides.ContainerOverrides) != 1 {
		t.Fatalf("expected one container override, got %d", len(got.Overrides.ContainerOverrides))
	}
	co := got.Overrides.ContainerOverrides[0]
	if co.Name != "scenecast-worker" {
		t.Errorf("unexpected container name %s", co.Name)
	}
	env := map[string]string{}
	for _, e := range co.Env {
		env[e.Name] = e.Value
	}
	want := map[string]string{
		"JOB_ID":                "1a2b3c4d",
		"CODE":                  "from manim import *",
		"CLOUDINARY_CLOUD_NAME": "cloud",
		"CLOUDINARY_API_KEY":    "key",
		"CLOUDINARY_API_SECRET": "secret",
	}
	if len(env) != len(want) {
		t.Errorf("expected %d env entries, got %d", len(want), len(env))
	}
	for k, v := range want {
		if env[k] != v {
			t.Errorf("env %s = %q, want %q", k, env[k], v)
		}
	}
}

func TestLaunchRejectedReturnsRawBody(t *testing.T) {
	const body = `{"error":{"code":403,"message":"Permission denied"}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	l := NewLauncherWithTokenSource(testConfig(srv.URL), ts, srv.Client(), logging.NewNopLogger())

	err := l.Launch(context.Background(), testInvocation())
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
	if launchErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected status %d", launchErr.StatusCode)
	}
	if err.Error() != body {
		t.Errorf("expected raw body as detail, got %q", err.Error())
	}
}

func TestLaunchValidatesPayload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	l := NewLauncherWithTokenSource(testConfig(srv.URL), ts, srv.Client(), logging.NewNopLogger())

	inv := testInvocation()
	inv.Code = strings.Repeat("x", 2048)
	if err := l.Launch(context.Background(), inv); !errors.Is(err, errs.PayloadTooLarge) {
		t.Errorf("expected PayloadTooLarge, got %v", err)
	}

	inv.Code = "bad \xff bytes"
	if err := l.Launch(context.Background(), inv); !errors.Is(err, errs.PayloadNotText) {
		t.Errorf("expected PayloadNotText, got %v", err)
	}

	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("invalid payloads must not reach the API, got %d requests", hits)
	}
}

type countingLauncher struct{ calls int32 }

func (c *countingLauncher) Launch(context.Context, domain.WorkerInvocation) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

func TestThrottledLauncher(t *testing.T) {
	next := &countingLauncher{}
	l := NewThrottledLauncher(next, 10, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Launch(context.Background(), testInvocation()); err != nil {
			t.Fatalf("launch: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected throttling delay, finished in %s", elapsed)
	}
	if next.calls != 3 {
		t.Errorf("expected 3 launches, got %d", next.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Launch(ctx, testInvocation()); err == nil {
		t.Error("expected cancelled context to abort a throttled launch")
	}
}
