package handlers

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/handlers/response"
)

type ctxKey string

// JobIDKey holds the job id a verified callback token was minted for.
const JobIDKey ctxKey = "callbackJobId"

// CallbackJobID returns the job id CallbackAuth verified for the request.
func CallbackJobID(ctx context.Context) (string, bool) {
	jobID, ok := ctx.Value(JobIDKey).(string)
	return jobID, ok && jobID != ""
}

type MiddlewareProvider struct {
	tokens        primary.JWTService
	logger        primary.Logger
	allowedOrigin string
}

func New(tokens primary.JWTService, logger primary.Logger, allowedOrigin string) *MiddlewareProvider {
	return &MiddlewareProvider{
		tokens:        tokens,
		logger:        logger,
		allowedOrigin: allowedOrigin,
	}
}

// CallbackAuth accepts only a bearer token minted for the job named by the
// job_id route variable.
func (m *MiddlewareProvider) CallbackAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokens == nil {
			response.WriteError(w, response.ErrorMessage{Message: "Worker reports are disabled", StatusCode: http.StatusNotFound})
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.WriteError(w, response.ErrorMessage{Message: "Authorization header missing", StatusCode: http.StatusUnauthorized})
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		jobID, err := m.tokens.VerifyJobToken(r.Context(), tokenString)
		if err != nil || jobID != mux.Vars(r)["job_id"] {
			m.logger.Warn("Rejected callback token", "path", r.URL.Path, "error", err)
			response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), JobIDKey, jobID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack keeps websocket upgrades working behind the logger.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// RequestLogger logs one line per request.
func (m *MiddlewareProvider) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

// CORS sets the allow-origin headers and answers preflight requests.
func (m *MiddlewareProvider) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", m.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
