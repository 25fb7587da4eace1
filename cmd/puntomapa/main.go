package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/puntomapa/puntomapa/internal/config"
	"github.com/puntomapa/puntomapa/internal/database"
	"github.com/puntomapa/puntomapa/internal/logging"
	"github.com/puntomapa/puntomapa/internal/metrics"
	"github.com/puntomapa/puntomapa/internal/repository"
	"github.com/puntomapa/puntomapa/internal/server"
	"github.com/puntomapa/puntomapa/internal/service"
	"github.com/puntomapa/puntomapa/internal/upload"
)

// version can be set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config", ".", "directory holding puntomapa.cfg.json")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logsDir := config.GetString("logsDir")
	logFile, err := logging.OpenLogFile(logsDir)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger, err := logging.Setup(config.GetString("logLevel"), logFile, config.GetGraylogConfig())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Info().Str("version", version).Msg("Starting puntomapa")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var activity service.ActivityRecorder
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		mgr := metrics.NewManager(influxCfg, logger, filepath.Join(logsDir, "metrics_backup.gz"))
		if err := mgr.Connect(); err != nil {
			logger.Warn().Err(err).Msg("Metrics backend unavailable, continuing without activity recording")
		} else {
			defer mgr.Close()
			activity = mgr
		}
	}

	db := database.NewManager(config.GetDatabaseConfig(), logger)
	if err := db.Connect(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Setup(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := repository.New(db.DB, logger)

	uploadCfg := config.GetUploadConfig()
	gateway, err := upload.New(uploadCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build upload gateway: %w", err)
	}

	svc, err := service.New(repo, gateway, activity, logger)
	if err != nil {
		return fmt.Errorf("failed to build marker service: %w", err)
	}

	serverCfg := config.GetServerConfig()
	uploadsDir := ""
	if uploadCfg.Strategy == "local" {
		uploadsDir = uploadCfg.Local.Dir
	}
	srv := server.New(serverCfg, logger, svc, gateway, uploadsDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	if err := srv.Shutdown(context.Background(), serverCfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}
