package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"split-compositor/internal/app"
	"split-compositor/internal/jobs"
	"split-compositor/internal/platform/config"
	"split-compositor/internal/platform/logger"
	"split-compositor/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	shutdownTimeout = 10 * time.Second
	metricsPath     = "/metrics"
)

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	components, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := components.FFmpeg.CheckAvailable(); err != nil {
		// Keep serving so /healthz can report it; runs fail with tool_unavailable.
		log.Warn("ffmpeg not available", "error", err)
	}

	met := metrics.New()
	repo := jobs.NewInMemoryRepository()
	svc := jobs.NewService(repo, components.Engine, components.Store, log, met, jobs.Options{
		Workers:      cfg.WorkerConcurrency,
		QueueSize:    cfg.QueueSize,
		OutputPrefix: cfg.OutputPrefix,
		Ready:        components.FFmpeg.CheckAvailable,
	})
	h := jobs.NewHandler(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, metricsPath))
	r.Get(metricsPath, func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRuns(svc.ActiveCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := make(chan struct{})
	go func() {
		svc.Run(workerCtx)
		close(workersDone)
	}()

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"storage_backend", components.Backend,
		"workers", cfg.WorkerConcurrency,
		"canvas_width", cfg.CanvasWidth,
		"canvas_height", cfg.CanvasHeight,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// In-flight runs are cancelled; their ffmpeg processes are killed and
	// their workspaces removed before the workers return.
	stopWorkers()
	<-workersDone

	log.Info("server stopped")
}
