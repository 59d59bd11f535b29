// Command preview decodes a GPV grid file and prints the first samples as
// indented JSON on stdout. Logs go to stderr; the database is never opened.
//
// Usage:
//
//	go run ./cmd/preview -limit 30
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/archive"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/eccodes"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/gpv"
	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
	"github.com/couchcryptid/gpv-forecast-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("preview failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applySource := config.RegisterSourceFlags(flag.CommandLine, cfg)
	limit := flag.Int("limit", 30, "maximum number of samples to print")
	flag.Parse()

	if err := applySource(); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("-limit: %w: must be positive", domain.ErrValidation)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(
		gpv.NewClient(cfg.FetchTimeout, logger, metrics),
		archive.NewExtractor(cfg.DataDir, logger, metrics, archive.WithMember(cfg.Member)),
		eccodes.NewDecoder(cfg.GribDumpPath, nil, logger),
		nil,
		pipeline.Options{
			SourceURL:   cfg.SourceURL,
			ArchivePath: cfg.ArchivePath(),
			Filter:      cfg.Filter,
		},
		logger,
		metrics,
	)

	samples, err := p.Preview(ctx, *limit)
	if err != nil {
		return err
	}
	return printSamples(os.Stdout, samples)
}

func printSamples(w io.Writer, samples []domain.Sample) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(samples)
}
