package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jurix/app"
	"jurix/config"
	"jurix/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupLogger(os.Stdout, logging.LogLevel(cfg.LogLevel))

	ctx := context.Background()
	service, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	serveErr, err := service.Start(ctx)
	if err != nil {
		logging.Error("failed to start service", "error", err)
		os.Exit(1)
	}

	logging.Info("jurix listener ready",
		"port", cfg.Port,
		"backend", cfg.Backend.URL,
		"backendToken", logging.MaskSensitive(cfg.Backend.Token),
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"jira", cfg.Jira.Enabled(),
		"s3", cfg.S3.Bucket != "")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logging.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		logging.Error("http server failed", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := service.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown error", "error", err)
		exitCode = 1
	}
	logging.Info("server stopped")
	os.Exit(exitCode)
}
