package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the ingest metrics to a Prometheus Pushgateway, replacing
// whatever was pushed before under the same job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	err := push.New(gatewayURL, job).
		Collector(m.IngestRuns).
		Collector(m.StageDuration).
		Collector(m.RowsWritten).
		Collector(m.FetchBytes).
		Collector(m.CacheHits).
		Collector(m.LastSuccess).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
