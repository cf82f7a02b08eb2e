package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docuverse/studio/pkg/config"
	"github.com/docuverse/studio/pkg/database"
	"github.com/docuverse/studio/pkg/logger"

	"github.com/docuverse/studio/internal/generation"
	"github.com/docuverse/studio/internal/notify"
	"github.com/docuverse/studio/internal/queue/tasks"
	"github.com/docuverse/studio/internal/repository"
	"github.com/docuverse/studio/internal/services"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	mux := asynq.NewServeMux()

	// Initialize DB and repositories for task handlers
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	projectRepo := repository.NewProjectRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)

	engine := generation.NewHTTPEngine(cfg.EngineBaseURL, nil)
	generator := generation.NewClient(engine, cfg.EngineGenerateTimeout)
	recoverer := generation.NewRecovery(engine, cfg.RecoveryInterval, cfg.RecoveryMaxAttempts)
	reporter := generation.NewReporter(engine)

	dispatcher := notify.NewWebhookDispatcher(notify.Config{
		BaseURL: cfg.WebhookBaseURL,
		Enabled: cfg.WebhookEnabled,
		Timeout: cfg.WebhookTimeout,
	})

	// The worker applies enhanced builds; it never enqueues, so no asynq client.
	genSvc := services.NewGenerationService(projectRepo, artifactRepo, engine, generator, recoverer, reporter, dispatcher, nil, cfg.FrontendURL)

	handler := tasks.NewEnhanceTaskHandler(genSvc)
	mux.HandleFunc(services.TaskTypeEnhance, handler.HandleEnhance)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
