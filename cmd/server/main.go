package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/database"
	"github.com/lumenlearn/lumen-backend/internal/handler"
	"github.com/lumenlearn/lumen-backend/internal/llm"
	"github.com/lumenlearn/lumen-backend/internal/logger"
	"github.com/lumenlearn/lumen-backend/internal/repository"
	"github.com/lumenlearn/lumen-backend/internal/router"
	"github.com/lumenlearn/lumen-backend/internal/service"
	"github.com/lumenlearn/lumen-backend/internal/validator"
	"github.com/lumenlearn/lumen-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Lumen Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewAssessmentSessionRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	gapRepo := repository.NewLearningGapRepository(pool)
	profileRepo := repository.NewLearnerProfileRepository(pool)
	adaptationRepo := repository.NewAdaptationRepository(pool)
	teachingStore := repository.NewRedisTeachingSessionStore(rdb, 6*time.Hour)
	queue := repository.NewRedisQueue(rdb)

	// ─── Initialize LLM Collaborator ──────────────────────────────────
	llmClient := llm.NewHTTPClient(cfg, log)
	llmEngine := llm.NewEngine(llmClient, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	learnerModelService := service.NewLearnerModelService(profileRepo, analyticsRepo, sessionRepo, rdb, cfg, log)
	assessmentService := service.NewAssessmentService(
		sessionRepo, questionRepo, responseRepo, analyticsRepo, gapRepo,
		llmEngine, learnerModelService, queue, cfg.Adapt, log,
	)
	teachingService := service.NewTeachingService(teachingStore, llmEngine, learnerModelService, queue, adaptationRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Assessment: handler.NewAssessmentHandler(assessmentService),
		Teaching:   handler.NewTeachingHandler(teachingService),
		Learner:    handler.NewLearnerHandler(learnerModelService),
		WS:         handler.NewWSHandler(rdb, teachingService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	analyticsWorker := worker.NewAnalyticsWorker(analyticsRepo, rdb, log)
	adaptationWorker := worker.NewAdaptationWorker(adaptationRepo, rdb, log)

	go analyticsWorker.Start(workerCtx)
	go adaptationWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
