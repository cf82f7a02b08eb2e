package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/docuverse/studio/internal/api"
	"github.com/docuverse/studio/internal/api/handlers"
	"github.com/docuverse/studio/internal/generation"
	"github.com/docuverse/studio/internal/notify"
	"github.com/docuverse/studio/internal/repository"
	"github.com/docuverse/studio/internal/services"
	"github.com/docuverse/studio/pkg/config"
	"github.com/docuverse/studio/pkg/database"
	"github.com/docuverse/studio/pkg/logger"
)

// @title           DocuVerse Studio API
// @version         1.0
// @description     Document generation and review workflow orchestrator

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting DocuVerse Studio",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	projectRepo := repository.NewProjectRepository(db)
	artifactRepo := repository.NewArtifactRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	// Generation engine client stack
	engine := generation.NewHTTPEngine(cfg.EngineBaseURL, nil)
	generator := generation.NewClient(engine, cfg.EngineGenerateTimeout)
	recoverer := generation.NewRecovery(engine, cfg.RecoveryInterval, cfg.RecoveryMaxAttempts)
	reporter := generation.NewReporter(engine)

	// Automation webhook subscriber
	dispatcher := notify.NewWebhookDispatcher(notify.Config{
		BaseURL: cfg.WebhookBaseURL,
		Enabled: cfg.WebhookEnabled,
		Timeout: cfg.WebhookTimeout,
	})

	// Queue client for background enhancement builds
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	// Services
	projectSvc := services.NewProjectService(projectRepo, timelineRepo, dispatcher, cfg.FrontendURL)
	generationSvc := services.NewGenerationService(projectRepo, artifactRepo, engine, generator, recoverer, reporter, dispatcher, asynqClient, cfg.FrontendURL)
	reviewSvc := services.NewReviewService(projectRepo, timelineRepo, feedbackRepo, artifactRepo)

	// Router
	router := api.NewRouter(api.Dependencies{
		HMACSecret:        []byte(cfg.JWTSecret),
		ProjectsHandler:   handlers.NewProjectsHandler(projectSvc),
		GenerationHandler: handlers.NewGenerationHandler(generationSvc),
		ReviewHandler:     handlers.NewReviewHandler(projectSvc, reviewSvc),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Blocking generation requests can legitimately hold the
		// connection for the full engine deadline plus recovery.
		WriteTimeout: cfg.EngineGenerateTimeout + cfg.RecoveryInterval*time.Duration(cfg.RecoveryMaxAttempts) + 30*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
