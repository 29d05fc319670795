package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"reelStudio/internal/api"
	"reelStudio/internal/auth"
	"reelStudio/internal/cache"
	"reelStudio/internal/config"
	"reelStudio/internal/database"
	"reelStudio/internal/gateway"
	"reelStudio/internal/storage"
)

func main() {
	cfg := config.MustLoad()
	prod := cfg.API.IsProduction()

	logger := newLogger(prod)
	slog.SetDefault(logger)
	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
		slog.String("environment", cfg.API.Environment),
	)

	db, err := database.InitDatabase(cfg.Database, !prod)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("database migrated")

	ctx := context.Background()

	deps := api.Deps{
		Config:  cfg,
		DB:      db,
		Gateway: gateway.NewMock(),
		Logger:  logger,
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		if prod {
			log.Fatalf("ping redis: %v", err)
		}
		logger.Warn("redis unavailable, running without throttling, cache and notifications", slog.Any("error", err))
		_ = redisClient.Close()
	} else {
		defer redisClient.Close()
		deps.Redis = redisClient
		deps.Cache = cache.NewRedisCache(redisClient, "reelstudio:catalog:")

		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
		defer queue.Close()
		deps.Enqueuer = queue
	}

	switch strings.ToLower(cfg.Storage.Driver) {
	case "minio":
		store, err := storage.NewMinIOStore(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("init minio store: %v", err)
		}
		deps.Store = store
		logger.Info("storage ready", slog.String("driver", "minio"), slog.String("bucket", cfg.MinIO.Bucket))
	default:
		store, err := storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatalf("init local store: %v", err)
		}
		deps.Store = store
		logger.Info("storage ready", slog.String("driver", "local"), slog.String("dir", cfg.Storage.LocalDir))
	}

	authService, err := loadAuthService(cfg.Auth, prod, logger)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}
	deps.Auth = authService

	if cfg.Admin.Token == "" && cfg.Admin.PasswordHash == "" {
		logger.Warn("no admin credentials configured; admin routes only accept admin-role sessions")
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}

func newLogger(prod bool) *slog.Logger {
	if prod {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadAuthService 读取 PEM 密钥；非生产环境缺少密钥文件时使用临时密钥，重启后令牌失效。
func loadAuthService(cfg config.AuthConfig, prod bool, logger *slog.Logger) (*auth.AuthService, error) {
	privatePEM, privErr := os.ReadFile(cfg.PrivateKeyPath)
	publicPEM, pubErr := os.ReadFile(cfg.PublicKeyPath)
	if privErr == nil && pubErr == nil {
		return auth.NewAuthService(privatePEM, publicPEM, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	if prod {
		return nil, fmt.Errorf("read jwt keys: %w", errors.Join(privErr, pubErr))
	}
	logger.Warn("jwt key files missing, using ephemeral keys",
		slog.String("private_key_path", cfg.PrivateKeyPath),
		slog.String("public_key_path", cfg.PublicKeyPath),
	)
	return auth.NewEphemeralService(cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}
