package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-skewt/internal/adapter/filesource"
	"github.com/couchcryptid/sounding-skewt/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/sounding-skewt/internal/adapter/kafka"
	"github.com/couchcryptid/sounding-skewt/internal/adapter/kma"
	"github.com/couchcryptid/sounding-skewt/internal/config"
	"github.com/couchcryptid/sounding-skewt/internal/observability"
	"github.com/couchcryptid/sounding-skewt/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Station display name comes from the optional YAML catalog.
	stationName := ""
	if cfg.StationCatalog != "" {
		catalog, err := config.LoadCatalog(cfg.StationCatalog)
		if err != nil {
			logger.Error("failed to load station catalog", "error", err)
			os.Exit(1)
		}
		if st, ok := catalog[cfg.Station]; ok {
			stationName = st.Name
		} else {
			logger.Warn("station missing from catalog", "station", cfg.Station)
		}
	}

	var fetcher pipeline.Fetcher
	switch cfg.Source {
	case config.SourceFile:
		fetcher = filesource.New(cfg.SourceFile, cfg.Station)
		logger.Info("file source enabled", "path", cfg.SourceFile)
	default:
		client := kma.NewClient(cfg.KMABaseURL, cfg.KMAAuthKey, cfg.Station, cfg.FetchTimeout, logger)
		fetcher = kma.NewCachedFetcher(client, cfg.Station, cfg.FetchCacheSize, clock)
		logger.Info("kma source enabled", "station", cfg.Station, "cache_size", cfg.FetchCacheSize)
	}

	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		publisher = pipeline.LogPublisher{Logger: logger}
		logger.Info("kafka sink disabled, logging analyses")
	}

	p := pipeline.New(fetcher, publisher, logger, metrics, clock, cfg.FetchInterval, stationName)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
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
