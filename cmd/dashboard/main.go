// Command dashboard serves the COVID-19 county dashboard over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/covid-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/covid-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/shapefile"
	"github.com/couchcryptid/covid-dashboard/internal/adapter/source"
	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	opts := []pipeline.Option{pipeline.WithYears(cfg.ReportYears...)}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder cache", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithGeocoder(geocoder))
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("report summaries published to kafka", "topic", cfg.KafkaSummaryTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(
		source.NewFetcher(cfg.FetchTimeout, logger, metrics),
		shapefile.NewReader(logger),
		pipeline.Sources{CasesURL: cfg.CasesURL, DeathsURL: cfg.DeathsURL, GeometryPath: cfg.GeometryPath},
		logger,
		metrics,
		opts...,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Readiness stays false until the first load succeeds; POST /api/v1/reload retries.
	go func() {
		if _, err := p.Load(ctx); err != nil {
			logger.Error("initial load failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
