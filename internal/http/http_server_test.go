package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gitlab.com/scenecast.net/internal/adapter/crypto"
	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/adapter/memory"
	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/services/dispatch"
	"gitlab.com/scenecast.net/internal/core/services/report"
	"gitlab.com/scenecast.net/internal/domain"
	"gitlab.com/scenecast.net/internal/taskpool"
)

type stubGenerator struct {
	gate chan struct{}
	code string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, string, error) {
	if g.gate != nil {
		<-g.gate
	}
	return "An explanation.", g.code, nil
}

type stubLauncher struct {
	mu   sync.Mutex
	err  error
	invs []domain.WorkerInvocation
}

func (l *stubLauncher) Launch(ctx context.Context, inv domain.WorkerInvocation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invs = append(l.invs, inv)
	return l.err
}

func (l *stubLauncher) last() domain.WorkerInvocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invs[len(l.invs)-1]
}

type testEnv struct {
	srv      *httptest.Server
	gen      *stubGenerator
	launcher *stubLauncher
}

func newTestEnv(t *testing.T, gen *stubGenerator, launcher *stubLauncher) *testEnv {
	t.Helper()
	logger := logging.NewNopLogger()
	jobStore := memory.New[domain.JobRecord]()
	reportStore := memory.New[domain.WorkerReport]()
	tokens := crypto.NewJWTService(&config.CallbackConfig{Secret: "test-secret", TokenTTL: time.Hour})

	pool := taskpool.New(logger, taskpool.WithMiddleware(taskpool.Recover(logger)))
	t.Cleanup(func() { _ = pool.Stop(context.Background()) })

	dispatchService := dispatch.NewDispatchService(jobStore, gen, launcher, pool, dispatch.NewStatusNotifier(), domain.PublishCredentials{}, logger)
	reportService := report.NewReportService(jobStore, reportStore, logger)

	s := NewServer(0, "test", "*", *NewServiceProvider(dispatchService, reportService, tokens), logger)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	dispatchService.SetCallback(srv.URL, tokens)
	return &testEnv{srv: srv, gen: gen, launcher: launcher}
}

func (e *testEnv) do(t *testing.T, method, path string, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func (e *testEnv) status(t *testing.T, jobID string) domain.JobRecord {
	t.Helper()
	code, body := e.do(t, http.MethodGet, "/status/"+jobID, "", nil)
	if code != http.StatusOK {
		t.Fatalf("status %s: got %d %s", jobID, code, body)
	}
	var rec domain.JobRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func (e *testEnv) submit(t *testing.T) string {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/generate", `{"prompt":"draw a circle"}`, nil)
	if code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", code, body)
	}
	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.JobID) != domain.JobIDLength || resp.Status != "started" {
		t.Fatalf("unexpected response %s", body)
	}
	return resp.JobID
}

func TestGenerateAndPoll(t *testing.T) {
	tests := []struct {
		name      string
		launchErr error
		want      domain.JobRecord
	}{
		{"running", nil, domain.JobRecord{Status: domain.JobStatusRunning, Explanation: "An explanation."}},
		{"launch failure", errors.New("Job not found: scenecast-worker"), domain.JobRecord{Status: domain.JobStatusFailed, Error: "Job not found: scenecast-worker"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubGenerator{gate: make(chan struct{}), code: "print(1)"}, &stubLauncher{err: tt.launchErr})
			jobID := env.submit(t)

			if rec := env.status(t, jobID); rec.Status != domain.JobStatusPending {
				t.Fatalf("expected pending, got %+v", rec)
			}
			close(env.gen.gate)

			var settled domain.JobRecord
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				rec := env.status(t, jobID)
				if settled.Status != "" && rec.Status == domain.JobStatusPending {
					t.Fatal("record went back to pending")
				}
				if rec.Status != domain.JobStatusPending {
					settled = rec
					break
				}
				time.Sleep(5 * time.Millisecond)
			}
			if settled != tt.want {
				t.Fatalf("settled on %+v, want %+v", settled, tt.want)
			}
			for i := 0; i < 3; i++ {
				if rec := env.status(t, jobID); rec != tt.want {
					t.Fatalf("record changed to %+v", rec)
				}
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{code: "print(1)"}, &stubLauncher{})
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{"unknown job", http.MethodGet, "/status/abcdef12", "", http.StatusNotFound, `{"message":"Invalid job ID"}`},
		{"malformed id", http.MethodGet, "/status/NOT-A-JOB", "", http.StatusNotFound, `{"message":"Invalid job ID"}`},
		{"malformed body", http.MethodPost, "/generate", `{"prompt":`, http.StatusBadRequest, `{"message":"Invalid request"}`},
		{"empty prompt", http.MethodPost, "/generate", `{"prompt":"  "}`, http.StatusBadRequest, `{"message":"Prompt is required"}`},
		{"missing prompt", http.MethodPost, "/generate", `{}`, http.StatusBadRequest, `{"message":"Prompt is required"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, tt.body, nil)
			if code != tt.wantCode {
				t.Fatalf("expected %d, got %d %s", tt.wantCode, code, body)
			}
			if tt.wantBody != "" && strings.TrimSpace(string(body)) != tt.wantBody {
				t.Errorf("unexpected body %s", body)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{code: "print(1)"}, &stubLauncher{})

	if code, body := env.do(t, http.MethodGet, "/", "", nil); code != http.StatusOK || strings.TrimSpace(string(body)) != `{"status":"ok"}` {
		t.Errorf("root: %d %s", code, body)
	}
	if code, body := env.do(t, http.MethodGet, "/ping", "", nil); code != http.StatusOK || strings.TrimSpace(string(body)) != `{"message":"pong"}` {
		t.Errorf("ping: %d %s", code, body)
	}

	env.submit(t)
	code, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	if code != http.StatusOK || !bytes.Contains(body, []byte("scenecast_jobs_submitted_total")) {
		t.Errorf("metrics: %d, submitted counter missing", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{code: "print(1)"}, &stubLauncher{})
	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/generate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := env.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight answer %d %v", resp.StatusCode, resp.Header)
	}
}

func TestWorkerReportFlow(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{code: "print(1)"}, &stubLauncher{})
	jobID := env.submit(t)

	deadline := time.Now().Add(2 * time.Second)
	for env.status(t, jobID).Status == domain.JobStatusPending && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	inv := env.launcher.last()
	if inv.Callback.URL != env.srv.URL+"/jobs/"+jobID+"/report" || inv.Callback.Token == "" {
		t.Fatalf("unexpected callback %+v", inv.Callback)
	}
	other := env.submit(t)

	result := `{"status":"success","job_id":"` + jobID + `","url":"https://cdn/v.mp4","code":"print(1)"}`
	path := "/jobs/" + jobID + "/report"

	if code, _ := env.do(t, http.MethodGet, path, "", nil); code != http.StatusNotFound {
		t.Fatalf("expected no report yet, got %d", code)
	}
	if code, _ := env.do(t, http.MethodPost, path, result, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code, _ := env.do(t, http.MethodPost, "/jobs/"+other+"/report", result, map[string]string{"Authorization": "Bearer " + inv.Callback.Token}); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another job's token, got %d", code)
	}
	if code, body := env.do(t, http.MethodPost, path, result, map[string]string{"Authorization": "Bearer " + inv.Callback.Token}); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", code, body)
	}

	code, body := env.do(t, http.MethodGet, path, "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected report, got %d", code)
	}
	var rep domain.WorkerReport
	if err := json.Unmarshal(body, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Result.URL != "https://cdn/v.mp4" || !rep.Result.Succeeded() {
		t.Errorf("unexpected report %+v", rep)
	}
	if rec := env.status(t, jobID); rec.Status != domain.JobStatusRunning {
		t.Errorf("report changed the job record: %+v", rec)
	}
}

func TestWatchOverWebsocket(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{gate: make(chan struct{}), code: "print(1)"}, &stubLauncher{})
	jobID := env.submit(t)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/status/" + jobID + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first domain.JobRecord
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if first.Status != domain.JobStatusPending {
		t.Fatalf("expected pending first, got %+v", first)
	}
	close(env.gen.gate)

	var second domain.JobRecord
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.Status != domain.JobStatusRunning {
		t.Fatalf("expected running, got %+v", second)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}

	if _, resp, err := websocket.DefaultDialer.Dial(strings.Replace(wsURL, jobID, "ffffffff", 1), nil); err == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job watch, got %v", err)
	}
}
