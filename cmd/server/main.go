package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/screentimejourney/dashboard-service/internal/api"
	"github.com/screentimejourney/dashboard-service/internal/core/service"
	"github.com/screentimejourney/dashboard-service/internal/infrastructure/backend"
	"github.com/screentimejourney/dashboard-service/internal/infrastructure/config"
	mongodb "github.com/screentimejourney/dashboard-service/internal/infrastructure/db/mongo"
	redisdb "github.com/screentimejourney/dashboard-service/internal/infrastructure/db/redis"
	"github.com/screentimejourney/dashboard-service/internal/infrastructure/queue"
	"github.com/screentimejourney/dashboard-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("disconnect mongo")
		}
	}()

	runs := mongodb.NewFlowRunRepository(db)
	if err := runs.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure flow run indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}()

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.JWTSecret, log)

	// The relock scheduler and the device service reference each other, so the
	// scheduler is built first and bound after.
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	scheduler := queue.NewRelockScheduler(0, log)
	devices := service.NewDeviceService(backendClient, scheduler, log)
	scheduler.Bind(devices)
	scheduler.Start(schedulerCtx)

	e := api.NewRouter(api.Dependencies{
		Config:  cfg,
		Mongo:   db,
		Redis:   rdb,
		Backend: backendClient,
		Devices: devices,
		Log:     log,
	})

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- e.Start(":" + cfg.Port)
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("dashboard service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-srvErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		os.Exit(1)
	}
	log.Info().Msg("server exited cleanly")
}
