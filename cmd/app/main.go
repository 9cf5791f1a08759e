package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nails-service/internal/attempts"
	"nails-service/internal/config"
	"nails-service/internal/lock"
	"nails-service/internal/notify/telegram"
	"nails-service/internal/scheduler"
	svc "nails-service/internal/service"
	"nails-service/internal/storage/images"
	"nails-service/internal/storage/postgres"
	"nails-service/internal/storage/redis"
	"nails-service/pkg/clock"
	"nails-service/pkg/handlers/slogpretty"
	"nails-service/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting nails-service", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		log.Error("Failed to apply schema", sl.Err(err))
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}

	imageStore := images.New(cfg.Uploads.Dir, cfg.Uploads.BaseURL, cfg.Uploads.MaxSide)

	var notifier svc.Notifier = telegram.Nop{Log: log}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		bot, err := telegram.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			log.Error("Failed to init telegram bot", sl.Err(err))
			os.Exit(1)
		}
		notifier = telegram.New(log, bot, cfg.Telegram.ChatID, imageStore)
		log.Info("Telegram notifications enabled", slog.String("bot", bot.Self.UserName))
	} else {
		log.Warn("Telegram is not configured, notifications are disabled")
	}

	service := svc.NewService(
		log,
		storage,
		lock.NewRedisLock(redisClient),
		imageStore,
		notifier,
		attempts.NewRedisCounter(redisClient, cfg.Admin.LoginWindow),
		clock.NewRealClock(),
		svc.Options{
			PasswordHash:     cfg.Admin.PasswordHash,
			SessionTTL:       cfg.Admin.SessionTTL,
			MaxLoginAttempts: cfg.Admin.MaxLoginAttempts,
			RetentionDays:    cfg.Cleanup.RetentionDays,
		},
	)

	router, err := newRouter(log, cfg, service, imageStore)
	if err != nil {
		log.Error("Failed to build router", sl.Err(err))
		os.Exit(1)
	}

	var cleanup *scheduler.Scheduler
	if cfg.Cleanup.Enabled {
		cleanup, err = scheduler.New(log, service, cfg.Cleanup.Schedule)
		if err != nil {
			log.Error("Failed to init cleanup scheduler", sl.Err(err))
			os.Exit(1)
		}
		cleanup.Start()
	}

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if cleanup != nil {
		cleanup.Stop(ctx)
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close redis", sl.Err(err))
	} else {
		log.Info("Redis closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
