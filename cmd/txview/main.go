package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"txview/internal/amqp"
	"txview/internal/backend"
	"txview/internal/cache"
	"txview/internal/cli"
	"txview/internal/config"
	"txview/internal/dashboard"
	apphttp "txview/internal/http"
	applog "txview/internal/log"
	"txview/internal/metrics"
	"txview/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)
	metrics.Init()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize data source", applog.FieldError, err, applog.FieldSource, cfg.DataSource)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close data source", applog.FieldError, err)
		}
	}()
	logger.Info("Initialized data source", applog.FieldSource, cfg.DataSource, "cache", cfg.CacheBackend)

	pages := dashboard.NewPages(dashboard.DefaultMaxPages, dashboard.DefaultPageTTL, logger)
	state := dashboard.NewState(res.Fetcher, pages, logger)

	// The page renders without data; readiness reports the failure.
	budget := fetchBudget(cfg)
	loadCtx, loadCancel := context.WithTimeout(ctx, budget)
	if err := state.Load(loadCtx); err != nil {
		logger.Error("Error fetching data", applog.FieldError, err, applog.FieldOperation, applog.OpStartup)
	}
	loadCancel()

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(pages)
	sweep := backend.SweepInterval(dashboard.DefaultPageTTL)
	if res.Cleaner != nil {
		cacheManager.Register(res.Cleaner)
		sweep = backend.SweepInterval(cfg.CacheTTL)
	}
	cacheManager.StartCleanup(sweep)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		State:              state,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		RefreshPerMinute:   cfg.RefreshPerMinute,
		RefreshTimeout:     budget,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = budget + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		refresher := worker.NewRefreshWorker(state, logger)
		g.Go(func() error {
			// The dashboard keeps serving without notifications.
			if err := amqpClient.ConsumeRefresh(gctx, refresher.HandleRefreshMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumer stopped", applog.FieldError, err)
			}
			return nil
		})
		logger.Info("Consuming refresh notifications", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	g.Go(func() error {
		logger.Info("Starting txview server", "port", cfg.Port, applog.FieldSource, cfg.DataSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		logger.Info("Shutting down server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// fetchBudget bounds one dataset load, including any cache round trip.
func fetchBudget(cfg *config.Config) time.Duration {
	if cfg.FetchTimeout <= 0 {
		return 30 * time.Second
	}
	return cfg.FetchTimeout + 5*time.Second
}
