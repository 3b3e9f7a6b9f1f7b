package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gitlab.com/scenecast.net/internal/adapter/cloudinary"
	"gitlab.com/scenecast.net/internal/adapter/logging"
	"gitlab.com/scenecast.net/internal/adapter/webhook"
	"gitlab.com/scenecast.net/internal/config"
	"gitlab.com/scenecast.net/internal/renderer"
)

func main() {
	InitReader()
	cfg := config.NewWorkerConfig()

	if cfg.JobID == "" || cfg.Code == "" {
		fmt.Fprintln(os.Stderr, renderer.ErrMissingInput)
		os.Exit(1)
	}

	// stdout carries the result line, so progress goes to stderr.
	logger := logging.NewZapLoggerWithLevel(os.Getenv("LOG_LEVEL"), "stderr").With("jobId", cfg.JobID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var sender webhook.Sender
	if cfg.CallbackURL != "" {
		sender = webhook.NewHTTPSender(cfg.ReportTimeout, cfg.ReportRetries)
	}
	worker := renderer.NewWorker(
		cfg,
		renderer.NewExecRunner(cfg.RenderTimeout, logger),
		cloudinary.NewPublisher(cfg.PublishConfig, nil, logger),
		sender,
		logger,
	)

	result := worker.Run(ctx)
	stop()
	_ = logger.Sync()
	os.Exit(renderer.WriteResult(os.Stdout, os.Stderr, result))
}

// InitReader loads <env>.env when an environment name is given as the first
// argument.
func InitReader() {
	if len(os.Args) < 2 {
		return
	}
	if err := godotenv.Load(os.Args[1] + ".env"); err != nil {
		log.Fatalf("Error loading %s.env file", os.Args[1])
	}
}
