package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"gitlab.com/scenecast.net/internal/adapter/cloudrun"
	"gitlab.com/scenecast.net/internal/adapter/crypto"
	"gitlab.com/scenecast.net/internal/adapter/gemini"
	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/adapter/memory"
	pgstore "gitlab.com/scenecast.net/internal/adapter/postgres/recordstore"
	redisstore "gitlab.com/scenecast.net/internal/adapter/redis/recordstore"
	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/core/ports/primary"
	"gitlab.com/scenecast.net/internal/core/ports/secondary"
	"gitlab.com/scenecast.net/internal/core/services/dispatch"
	"gitlab.com/scenecast.net/internal/core/services/report"
	"gitlab.com/scenecast.net/internal/domain"
	logger2 "gitlab.com/scenecast.net/internal/global/logger"
	http2 "gitlab.com/scenecast.net/internal/http"
	"gitlab.com/scenecast.net/internal/schedulerengine"
	"gitlab.com/scenecast.net/internal/taskpool"
)

func main() {
	InitReader()
	sysCfg := config.NewSystemConfig()

	logger := logging.NewZapLoggerWithLevel(sysCfg.EffectiveLogLevel(), "stdout")
	logger2.Configure(logger)
	logger2.Info("Starting render dispatcher service")
	defer func() { _ = logger.Sync() }()

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, sysCfg, logger); err != nil {
		logger.Error("Service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("successfully shutdown server")
}

func run(ctx context.Context, sysCfg *config.AppConfig, logger *logging.ZapLogger) error {
	logger.Info("Starting render dispatcher", "store", sysCfg.StoreConfig.Backend)

	// SECONDARY PORTS
	stores, err := setupStores(ctx, sysCfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	var launcher secondary.WorkerLauncher
	cloudRun, err := cloudrun.NewLauncher(ctx, sysCfg.LauncherConfig, logger)
	if err != nil {
		return err
	}
	launcher = cloudRun
	if sysCfg.LauncherConfig.RatePerSec > 0 {
		launcher = cloudrun.NewThrottledLauncher(cloudRun, sysCfg.LauncherConfig.RatePerSec, sysCfg.LauncherConfig.RateBurst)
	}
	logger.Info("Worker launcher ready", "runUrl", cloudRun.RunURL())

	template, err := gemini.LoadPromptTemplate(sysCfg.GeneratorConfig.TemplateFile)
	if err != nil {
		return err
	}
	generator := gemini.NewGenerator(sysCfg.GeneratorConfig, template, nil, logger)

	//primary ports
	var tokens primary.JWTService
	if sysCfg.CallbackConfig.Enabled() {
		tokens = crypto.NewJWTService(sysCfg.CallbackConfig)
	}

	//services
	pool := taskpool.New(logger,
		taskpool.WithConcurrency(sysCfg.DispatchConfig.Concurrency),
		taskpool.WithMiddleware(
			taskpool.Recover(logger),
			taskpool.Metrics(),
			taskpool.Tracing(),
			taskpool.Timeout(sysCfg.DispatchConfig.TaskTimeout),
		),
	)
	dispatchSvc := dispatch.NewDispatchService(
		stores.jobs,
		generator,
		launcher,
		pool,
		dispatch.NewStatusNotifier(),
		sysCfg.PublishConfig.Credentials(),
		logger,
	)
	if tokens != nil {
		dispatchSvc.SetCallback(sysCfg.CallbackConfig.BaseURL, tokens)
	}
	reportSvc := report.NewReportService(stores.jobs, stores.reports, logger)
	serviceProvider := http2.NewServiceProvider(dispatchSvc, reportSvc, tokens)

	//server
	httpCfg := sysCfg.HTTPConfig
	httpServer := http2.NewServer(httpCfg.Port, httpCfg.ServiceName, httpCfg.AllowedOrigin, *serviceProvider, logger)
	httpServer.ShutdownTimeout = sysCfg.DispatchConfig.ShutdownTimeout
	if err := httpServer.Init(); err != nil {
		return err
	}

	janitor := schedulerengine.NewSchedulerEngine(sysCfg.SweepConfig, logger)
	for name, sweeper := range stores.sweepers {
		janitor.Register(name, sweeper)
	}
	if err := janitor.StartSweepEngine(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		janitor.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sysCfg.DispatchConfig.ShutdownTimeout)
		defer cancel()
		return pool.Stop(shutdownCtx)
	})
	return g.Wait()
}

type storeSet struct {
	jobs     secondary.JobStore
	reports  secondary.ReportStore
	sweepers map[string]secondary.Sweeper
	close    func()
}

func setupStores(ctx context.Context, sysCfg *config.AppConfig, logger primary.Logger) (*storeSet, error) {
	switch sysCfg.StoreConfig.Backend {
	case config.StoreMemory:
		jobs := memory.New[domain.JobRecord]()
		reports := memory.New[domain.WorkerReport]()
		return &storeSet{
			jobs:     jobs,
			reports:  reports,
			sweepers: map[string]secondary.Sweeper{"jobs": jobs, "reports": reports},
			close:    func() {},
		}, nil

	case config.StoreRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Url,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		prefix := sysCfg.RedisConfig.KeyPrefix
		ttl := sysCfg.SweepConfig.TTL
		return &storeSet{
			jobs:    redisstore.NewStore[domain.JobRecord](redisClient, logger, prefix+redisstore.JobKeyPrefix, ttl),
			reports: redisstore.NewStore[domain.WorkerReport](redisClient, logger, prefix+redisstore.ReportKeyPrefix, ttl),
			close:   func() { _ = redisClient.Close() },
		}, nil

	case config.StorePostgres:
		db, err := setupDatabase(sysCfg.PostgresConfig.Url)
		if err != nil {
			return nil, err
		}
		jobs, err := pgstore.NewStore[domain.JobRecord](db, logger, pgstore.JobTable)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		reports, err := pgstore.NewStore[domain.WorkerReport](db, logger, pgstore.ReportTable)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		for _, m := range []interface{ Migrate(context.Context) error }{jobs, reports} {
			if err := m.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &storeSet{
			jobs:     jobs,
			reports:  reports,
			sweepers: map[string]secondary.Sweeper{"jobs": jobs, "reports": reports},
			close:    func() { _ = db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown job store %q", sysCfg.StoreConfig.Backend)
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(connStr string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// InitReader loads <env>.env when an environment name is given as the first
// argument. Without one the process environment is used as is.
func InitReader() {
	if len(os.Args) < 2 {
		return
	}
	environment := os.Args[1]
	if err := godotenv.Load(environment + ".env"); err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
