package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest stage labels.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageDecode  = "decode"
	StageBuild   = "build"
	StagePersist = "persist"
)

// Metrics holds the Prometheus counters, histograms, and gauges for ingest runs.
type Metrics struct {
	IngestRuns    *prometheus.CounterVec   // labels: outcome={success,error}
	StageDuration *prometheus.HistogramVec // labels: stage
	RowsWritten   prometheus.Counter
	FetchBytes    prometheus.Counter
	CacheHits     *prometheus.CounterVec // labels: stage={fetch,extract}
	LastSuccess   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gpv",
			Name:      "ingest_runs_total",
			Help:      "Ingest runs by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gpv",
			Name:      "ingest_stage_duration_seconds",
			Help:      "Duration of each ingest stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpv",
			Name:      "ingest_rows_written_total",
			Help:      "Forecast rows written to storage.",
		}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gpv",
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded from the GPV source.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gpv",
			Name:      "cache_hits_total",
			Help:      "Fetch and extract steps skipped because the local file already existed.",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gpv",
			Name:      "ingest_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful ingest run.",
		}),
	}
}

// NewMetrics creates and registers all ingest metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRuns,
		m.StageDuration,
		m.RowsWritten,
		m.FetchBytes,
		m.CacheHits,
		m.LastSuccess,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
