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
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/receivables/internal/app"
	"github.com/odyssey-erp/receivables/internal/observability"
	"github.com/odyssey-erp/receivables/internal/platform/cache"
	receivableshttp "github.com/odyssey-erp/receivables/internal/receivables/http"
	"github.com/odyssey-erp/receivables/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	client, service := app.NewReceivables(cfg, logger, metrics.Pipeline())
	if err := cfg.OdooConfig().Validate(); err != nil {
		logger.Warn("erp not configured; report endpoints will answer 503", slog.Any("error", err))
	}

	checks := map[string]app.HealthCheck{}
	var pdf receivableshttp.PDFService
	if exporter := app.NewPDFExporter(cfg); exporter != nil {
		pdf = exporter
		checks["gotenberg"] = exporter.Ping
	}
	receivablesHandler := receivableshttp.NewHandler(logger, service, pdf, receivableshttp.Config{
		RequestTimeout:  cfg.AppRequestTimeout,
		ExportRateLimit: cfg.ExportRateLimit,
	})

	var jobHandler *jobs.Handler
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable; job endpoints disabled", slog.Any("error", err))
		jobHandler = jobs.NewHandler(nil, nil, logger)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, jobs.NewExportStore(redisClient), logger)
		checks["redis"] = func(ctx context.Context) error { return cache.Probe(ctx, redisClient) }
	}
	checks["erp_session"] = func(context.Context) error {
		if client.UID() == 0 {
			return errors.New("no session established")
		}
		return nil
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ReceivablesHandler: receivablesHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
		Checks:             checks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
