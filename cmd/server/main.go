package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/database"
	"github.com/mockprep/coach-gateway/internal/handler"
	"github.com/mockprep/coach-gateway/internal/logger"
	"github.com/mockprep/coach-gateway/internal/repository"
	"github.com/mockprep/coach-gateway/internal/router"
	"github.com/mockprep/coach-gateway/internal/service"
	"github.com/mockprep/coach-gateway/internal/validator"
	"github.com/mockprep/coach-gateway/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("backend", cfg.BackendURL).
		Msg("Starting coach gateway")

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

	// ─── Submission Journal ────────────────────────────────────────────
	submissionRepo := repository.NewSubmissionRepository(pool)
	journalQueue := worker.NewRedisQueue(rdb, config.WorkerKey.PersistSubmissionsQueue)
	journalWorker := worker.NewJournalWorker(journalQueue, submissionRepo, log)

	// ─── Initialize Services ──────────────────────────────────────────
	backendClient := backend.New(cfg.BackendURL, cfg.BackendTimeout, log)

	authService := service.NewAuthService(cfg, backendClient, service.NewRedisSessionStore(rdb), log)
	interviewService := service.NewInterviewService(backendClient, cfg.MaxUploadBytes, log)
	feedbackService := service.NewFeedbackService(backendClient)
	flowService := service.NewFlowService(
		cfg,
		backendClient,
		authService,
		service.NewRedisSnapshotStore(rdb),
		journalWorker,
		submissionRepo,
		log,
	)
	resourceService, err := service.NewResourceService()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load resource catalog")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	probes := map[string]handler.Probe{
		"postgres": database.PostgresProbe(pool),
		"redis":    database.RedisProbe(rdb),
	}
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, cfg),
		Interview: handler.NewInterviewHandler(interviewService, flowService),
		Feedback:  handler.NewFeedbackHandler(feedbackService),
		Flow:      handler.NewFlowHandler(authService, flowService),
		WS:        handler.NewWSHandler(flowService, log, cfg.AllowedOrigins),
		Resource:  handler.NewResourceHandler(resourceService),
		System:    handler.NewSystemHandler(probes, journalQueue, flowService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		journalWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		flowService.StartReaper(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r, authLimiter := router.SetupRouter(authService, handlers, cfg, log)
	defer authLimiter.Stop()

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout). Hijacked WebSocket
	// connections are not tracked by Shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close live flows; this ends their WebSocket streams. Locked answers
	// stay in their snapshots.
	flowService.CloseAll()

	// 3. Stop the reaper and the journal worker once it has drained the queue.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
