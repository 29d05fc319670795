package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"reelStudio/internal/config"
	"reelStudio/internal/database"
	"reelStudio/internal/metrics"
	"reelStudio/internal/tasks"
	"reelStudio/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if cfg.API.IsProduction() {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database, false)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var sms worker.SMSSender
	if sender := worker.NewTwilioSender(cfg.Notify); sender != nil {
		sms = sender
		logger.Info("sms notifications enabled", slog.String("to", cfg.Notify.ToNumber))
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 10,
	})

	notifyHandler := worker.NewNotifyHandler(db, redisClient, sms, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.TaskMiddleware())
	mux.HandleFunc(tasks.TypeLeadNotify, notifyHandler.ProcessLeadTask)
	mux.HandleFunc(tasks.TypeQuoteNotify, notifyHandler.ProcessQuoteTask)

	// metrics_addr 为空时不监听
	var metricsServer *http.Server
	if addr := cfg.Worker.MetricsAddr; addr != "" {
		metricsServer = metrics.NewServer(addr)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener stopped", slog.Any("error", err))
			}
		}()
		logger.Info("worker metrics listening", slog.String("addr", addr))
	}

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics listener shutdown failed", slog.Any("error", err))
		}
	}
}
