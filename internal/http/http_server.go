package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/services/dispatch"
	"gitlab.com/scenecast.net/internal/core/services/report"
	"gitlab.com/scenecast.net/internal/handlers"
	"gitlab.com/scenecast.net/internal/handlers/jobs"
)

type ServiceProvider struct {
	dispatchService dispatch.IDispatchService
	reportService   report.IReportService
	tokens          primary.JWTService
}

// NewServiceProvider bundles the services behind the routes. tokens may be
// nil, in which case worker reports are refused.
func NewServiceProvider(
	dispatchService dispatch.IDispatchService,
	reportService report.IReportService,
	tokens primary.JWTService,
) *ServiceProvider {
	return &ServiceProvider{
		dispatchService: dispatchService,
		reportService:   reportService,
		tokens:          tokens,
	}
}

type Server struct {
	handler         http.Handler
	Port            int
	ServiceName     string
	AllowedOrigin   string
	ServiceProvider ServiceProvider
	logger          primary.Logger
	ShutdownTimeout time.Duration
}

func NewServer(port int, serviceName string, allowedOrigin string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		AllowedOrigin:   allowedOrigin,
		ServiceProvider: serviceProvider,
		logger:          logger,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.New(s.ServiceProvider.tokens, s.logger, s.AllowedOrigin)
	r.Use(mw.RequestLogger)

	handlers.NewHealthHandler().RegisterRoutes(r)
	jobs.
		NewJobHandler(s.ServiceProvider.dispatchService, s.logger).
		RegisterRoutes(r)
	jobs.
		NewReportHandler(s.ServiceProvider.reportService, s.logger).
		RegisterRoutes(r, mw.CallbackAuth)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.handler = mw.CORS(r)
	return nil
}

// Handler returns the routed handler, available after Init.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.handler == nil {
		return errors.New("server is not initialised")
	}

	// Set up server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", srv.Addr, "service", s.ServiceName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
