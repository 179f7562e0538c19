// Command server starts the interview assessment HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetngreet/interview-backend/internal/adapter/ai/openai"
	"github.com/meetngreet/interview-backend/internal/adapter/ai/whisper"
	httpserver "github.com/meetngreet/interview-backend/internal/adapter/httpserver"
	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/adapter/questionbank"
	"github.com/meetngreet/interview-backend/internal/adapter/repo/mysqlmirror"
	"github.com/meetngreet/interview-backend/internal/adapter/repo/postgres"
	"github.com/meetngreet/interview-backend/internal/adapter/storage"
	"github.com/meetngreet/interview-backend/internal/adapter/vision"
	"github.com/meetngreet/interview-backend/internal/app"
	"github.com/meetngreet/interview-backend/internal/config"
	"github.com/meetngreet/interview-backend/internal/domain"
	"github.com/meetngreet/interview-backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	userRepo := postgres.NewUserRepo(pool)
	sessionRepo := postgres.NewSessionRepo(pool)
	questionRepo := postgres.NewSessionQuestionRepo(pool)
	responseRepo := postgres.NewResponseRepo(pool)
	scoreRepo := postgres.NewScoreRepo(pool)

	// Reporting mirror, best effort.
	mirror, err := mysqlmirror.New(cfg.MirrorDBDSN)
	if err != nil {
		slog.Error("mirror connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer mirror.Close()

	// Media storage
	mediaStore, err := storage.New(cfg.MediaDir)
	if err != nil {
		slog.Error("media dir unavailable", slog.Any("error", err))
		os.Exit(1)
	}

	// AI adapters
	llm := openai.New(cfg)
	var local domain.LocalRecognizer
	if cfg.WhisperURL != "" {
		local = whisper.New(cfg.WhisperURL, cfg.WhisperTimeout)
	}
	var detector domain.FrameDetector
	if cfg.VisionURL != "" {
		detector = vision.New(cfg.VisionURL, cfg.VisionTimeout)
	}
	transcriber := usecase.TranscriptionService{Local: local, Hosted: llm}
	video := usecase.VideoAnalyzer{Detector: detector}

	// Usecases
	bank := questionbank.New(cfg.QuestionBank)
	sessionSvc := usecase.NewSessionService(sessionRepo, questionRepo, responseRepo, bank, cfg.QuestionMode, cfg.QuestionCount)
	coordinator := usecase.NewCoordinator(sessionRepo, questionRepo, responseRepo, scoreRepo, userRepo,
		transcriber, video, llm, mirror, cfg.EvaluationDir)
	uploadSvc := &usecase.UploadService{
		Sessions:    sessionRepo,
		Questions:   questionRepo,
		Responses:   responseRepo,
		Media:       mediaStore,
		Coordinator: coordinator,
	}
	adminSvc := &usecase.AdminService{
		Sessions:      sessionRepo,
		Questions:     questionRepo,
		Responses:     responseRepo,
		Scores:        scoreRepo,
		Media:         mediaStore,
		Mirror:        mirror,
		Coordinator:   coordinator,
		EvaluationDir: cfg.EvaluationDir,
	}

	dbCheck, mirrorCheck, llmCheck := app.BuildReadinessChecks(cfg, pool, mirror)

	srv := httpserver.NewServer(cfg, sessionSvc, uploadSvc, adminSvc, userRepo, dbCheck, mirrorCheck, llmCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)

	// Let in-flight evaluations finish before the process exits.
	coordinator.Wait()
}
