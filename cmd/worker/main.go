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

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/receivables/internal/app"
	jobmetrics "github.com/odyssey-erp/receivables/internal/jobs"
	"github.com/odyssey-erp/receivables/internal/platform/cache"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
	"github.com/odyssey-erp/receivables/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	if err := app.LoadEnvFiles(); err != nil {
		slog.Default().Error("load env", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	_, service := app.NewReceivables(cfg, logger)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var sheets jobs.SheetAppender
	if cfg.GoogleSheetURL != "" {
		writer, err := newSheetsWriter(ctx, cfg.GoogleSheetURL, logger)
		if err != nil {
			logger.Warn("google sheets export disabled", slog.Any("error", err))
		} else {
			sheets = writer
		}
	}

	exportJob := jobs.NewReportExportJob(jobs.ReportExportConfig{
		Source:    service,
		Sheets:    sheets,
		SheetName: cfg.GoogleSheetName,
		Dir:       cfg.ExportDir,
		Store:     jobs.NewExportStore(redisClient),
		Logger:    logger,
		Metrics:   metrics,
	})
	pingJob := jobs.NewERPPingJob(service, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportExport, Handler: exportJob.Handle},
			{Type: jobs.TaskERPPing, Handler: pingJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.ERPPingSchedule, Task: jobs.NewERPPingTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting worker")
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSheetsWriter(ctx context.Context, url string, logger *slog.Logger) (*export.SheetsWriter, error) {
	creds, err := export.LoadGoogleCredentials()
	if err != nil {
		return nil, err
	}
	return export.NewSheetsWriter(ctx, url, creds, logger)
}
