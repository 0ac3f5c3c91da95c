package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baxromumarov/job-harvester/internal/api"
	"github.com/baxromumarov/job-harvester/internal/app"
	"github.com/baxromumarov/job-harvester/internal/config"
	"github.com/baxromumarov/job-harvester/internal/core"
	"github.com/baxromumarov/job-harvester/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{Migrate: true})
	if err != nil {
		logger.Error("failed to initialise pipeline", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	runs := api.NewRuns(a.Crawler())

	var records api.RecordStore
	if a.Store != nil {
		records = a.Store
	}

	if cfg.Crawl.Schedule != "" {
		if cfg.Search.Keywords == "" {
			logger.Error("CRAWL_SCHEDULE needs SEARCH_KEYWORDS")
			os.Exit(1)
		}
		scheduler := core.NewSchedulerService(cfg.Crawl.Schedule, a.Request(0), func(ctx context.Context, req core.CrawlRequest) {
			run := runs.Execute(ctx, req)
			logger.Info("scheduled crawl finished", "id", run.ID, "status", run.Status, "error", run.Error)
		}, logger)
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()
	}

	srv := api.NewServer(ctx, runs, records, logger)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	runs.Wait()
	logger.Info("stopped")
}
