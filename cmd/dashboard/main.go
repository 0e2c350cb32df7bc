package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/covid-dashboard-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-dashboard-service/internal/adapter/kafka"
	"github.com/couchcryptid/covid-dashboard-service/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-dashboard-service/internal/adapter/source"
	"github.com/couchcryptid/covid-dashboard-service/internal/config"
	"github.com/couchcryptid/covid-dashboard-service/internal/domain"
	"github.com/couchcryptid/covid-dashboard-service/internal/observability"
	"github.com/couchcryptid/covid-dashboard-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize locator (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var locator domain.Locator
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedLocator(client, cfg.MapboxCacheSize, cfg.MapboxNegativeTTL, metrics)
		if err != nil {
			logger.Error("failed to create locator cache", "error", err)
			os.Exit(1)
		}
		locator = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	p := pipeline.New(pipeline.Options{
		Extract: domain.ExtractOptions{
			Match:         cfg.MatchPolicy,
			UnknownRegion: cfg.UnknownRegion,
		},
		SmoothFraction: cfg.SmoothFraction,
	}, locator, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the dataset before accepting requests; a bad file stops startup.
	src := source.NewClient(cfg, logger)
	ds, err := pipeline.LoadDataset(ctx, src, src, logger, metrics)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "source", cfg.DataURL)
		os.Exit(1)
	}
	p.SetDataset(ds)

	if locator != nil {
		go func() {
			if _, err := p.WarmLocations(ctx); err != nil {
				logger.Warn("location warm-up interrupted", "error", err)
			}
		}()
	}

	if cfg.SnapshotEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		if err := pipeline.ExportSnapshots(ctx, ds, writer, logger, metrics); err != nil {
			logger.Error("snapshot export failed", "error", err, "topic", cfg.SnapshotTopic)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdown(srv, cfg, logger)
	logger.Info("shutdown complete")
}

func shutdown(srv *httpadapter.Server, cfg *config.Config, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
