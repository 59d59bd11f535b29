// Package pipeline runs the GPV ingest: fetch the archive, extract the grid
// file, decode it, build samples and persist them as forecast rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
)

// Fetcher downloads url to target unless target already exists.
type Fetcher interface {
	Fetch(ctx context.Context, url, target string) (bool, error)
}

// Extractor pulls the grid file out of a downloaded archive.
type Extractor interface {
	Extract(ctx context.Context, archivePath string) (string, error)
}

// Decoder turns a grid file into a dataset, keeping only messages that match filter.
type Decoder interface {
	Decode(ctx context.Context, path string, filter domain.Filter) (*domain.Dataset, error)
}

// ForecastLoader writes forecast rows to storage.
type ForecastLoader interface {
	ReplaceForecasts(ctx context.Context, rows []domain.Forecast) error
	AppendForecasts(ctx context.Context, rows []domain.Forecast) error
}

// Notifier announces a finished ingest run.
type Notifier interface {
	Publish(ctx context.Context, report domain.IngestReport) error
}

// Options selects the source and how its rows are stored.
type Options struct {
	SourceURL   string
	ArchivePath string
	Filter      domain.Filter
	Mode        domain.Mode
	Mapping     domain.Mapping
	Fields      domain.FieldMap
}

// Pipeline orchestrates one sequential ingest or preview.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	decoder   Decoder
	loader    ForecastLoader
	notifier  Notifier
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline with the given stages and observability. The loader
// may be nil when only Preview is used.
func New(f Fetcher, e Extractor, d Decoder, l ForecastLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Mode == "" {
		opts.Mode = domain.ModeReplace
	}
	if opts.Mapping == "" {
		opts.Mapping = domain.MappingConverted
	}
	return &Pipeline{
		fetcher:   f,
		extractor: e,
		decoder:   d,
		loader:    l,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// WithNotifier sets where run reports are published. Publish failures are logged, not returned.
func (p *Pipeline) WithNotifier(n Notifier) *Pipeline {
	p.notifier = n
	return p
}

// Preview decodes the source and returns at most limit samples without touching storage.
func (p *Pipeline) Preview(ctx context.Context, limit int) ([]domain.Sample, error) {
	ds, _, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	var samples []domain.Sample
	err = p.stage(observability.StageBuild, func() error {
		samples, err = domain.BuildSamples(ds, domain.BuildOptions{Limit: limit, Fields: p.opts.Fields})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build samples: %w", err)
	}
	return samples, nil
}

// Run performs a full ingest. Any stage failure aborts the run; in replace
// mode the stored rows are left as they were.
func (p *Pipeline) Run(ctx context.Context) (domain.IngestReport, error) {
	report, err := p.run(ctx)
	if err != nil {
		p.metrics.IngestRuns.WithLabelValues("error").Inc()
		p.logger.Error("ingest failed", "run_id", report.RunID, "error", err)
		return report, err
	}

	p.metrics.IngestRuns.WithLabelValues("success").Inc()
	p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	p.logger.Info("ingest complete",
		"run_id", report.RunID,
		"rows", report.Rows,
		"mode", report.Mode,
		"run_time", report.RunTime,
		"forecast_time", report.ForecastTime,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, report); err != nil {
			p.logger.Warn("publish ingest report failed", "run_id", report.RunID, "error", err)
		}
	}
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.IngestReport, error) {
	report := domain.IngestReport{
		RunID:     uuid.NewString(),
		SourceURL: p.opts.SourceURL,
		Mode:      string(p.opts.Mode),
		Mapping:   string(p.opts.Mapping),
		StartedAt: domain.Now(),
	}
	if p.loader == nil {
		return report, errors.New("pipeline has no forecast loader")
	}
	p.logger.Info("ingest started", "run_id", report.RunID, "url", p.opts.SourceURL, "mode", p.opts.Mode)

	ds, gridPath, err := p.load(ctx)
	if err != nil {
		return report, err
	}
	report.Member = filepath.Base(gridPath)

	var rows []domain.Forecast
	err = p.stage(observability.StageBuild, func() error {
		samples, err := domain.BuildSamples(ds, domain.BuildOptions{Fields: p.opts.Fields})
		if err != nil {
			return err
		}
		rows = domain.MapForecasts(ds, samples, p.opts.Mapping, report.StartedAt)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("build samples: %w", err)
	}
	report.RunTime, report.ForecastTime = domain.ForecastTimes(ds, report.StartedAt)

	err = p.stage(observability.StagePersist, func() error {
		if p.opts.Mode == domain.ModeAppend {
			return p.loader.AppendForecasts(ctx, rows)
		}
		return p.loader.ReplaceForecasts(ctx, rows)
	})
	if err != nil {
		return report, fmt.Errorf("persist forecasts: %w", err)
	}
	p.metrics.RowsWritten.Add(float64(len(rows)))

	report.Rows = len(rows)
	report.FinishedAt = domain.Now()
	return report, nil
}

// load runs fetch, extract and decode, returning the dataset and the grid file path.
func (p *Pipeline) load(ctx context.Context) (*domain.Dataset, string, error) {
	err := p.stage(observability.StageFetch, func() error {
		_, err := p.fetcher.Fetch(ctx, p.opts.SourceURL, p.opts.ArchivePath)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("fetch archive: %w", err)
	}

	var gridPath string
	err = p.stage(observability.StageExtract, func() error {
		var err error
		gridPath, err = p.extractor.Extract(ctx, p.opts.ArchivePath)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("extract grid file: %w", err)
	}

	var ds *domain.Dataset
	err = p.stage(observability.StageDecode, func() error {
		var err error
		ds, err = p.decoder.Decode(ctx, gridPath, p.opts.Filter)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("decode grid file: %w", err)
	}
	return ds, gridPath, nil
}

// stage times fn under the given stage label.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}
