// Command ingest downloads a GPV archive, decodes its grid file and writes
// the grid points to the forecasts table.
//
// Usage:
//
//	go run ./cmd/ingest -mode replace -filter stepType=instant,numberOfPoints=65160
//	go run ./cmd/ingest -demo
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/archive"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/eccodes"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/gpv"
	kafkaadapter "github.com/couchcryptid/gpv-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/store"
	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
	"github.com/couchcryptid/gpv-forecast-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applySource := config.RegisterSourceFlags(flag.CommandLine, cfg)
	applyIngest := config.RegisterIngestFlags(flag.CommandLine, cfg)
	demo := flag.Bool("demo", false, "seed demo forecasts and weather samples into empty tables instead of ingesting")
	flag.Parse()

	if err := applySource(); err != nil {
		return err
	}
	if err := applyIngest(); err != nil {
		return err
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("database close error", "error", err)
		}
	}()

	if *demo {
		forecasts, samples, err := db.SeedDemo(ctx, domain.Now())
		if err != nil {
			return err
		}
		logger.Info("demo data seeded", "forecasts", forecasts, "weather_samples", samples)
		return nil
	}

	metrics := observability.NewMetrics()
	p := newPipeline(cfg, db, logger, metrics)

	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		p.WithNotifier(writer)
	}

	_, err = p.Run(ctx)
	if cfg.PushEnabled() {
		pushMetrics(cfg, metrics, logger)
	}
	return err
}

// pushMetrics exports the run's metrics whether or not the run succeeded. The
// signal context may already be done, so the push gets its own deadline.
func pushMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.PushgatewayJob); err != nil {
		logger.Warn("metrics push failed", "error", err)
		return
	}
	logger.Info("metrics pushed", "gateway", cfg.PushgatewayURL, "job", cfg.PushgatewayJob)
}

func newPipeline(cfg *config.Config, loader pipeline.ForecastLoader, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Pipeline {
	return pipeline.New(
		gpv.NewClient(cfg.FetchTimeout, logger, metrics),
		archive.NewExtractor(cfg.DataDir, logger, metrics, archive.WithMember(cfg.Member)),
		eccodes.NewDecoder(cfg.GribDumpPath, nil, logger),
		loader,
		pipeline.Options{
			SourceURL:   cfg.SourceURL,
			ArchivePath: cfg.ArchivePath(),
			Filter:      cfg.Filter,
			Mode:        cfg.IngestMode,
			Mapping:     cfg.Mapping,
		},
		logger,
		metrics,
	)
}
