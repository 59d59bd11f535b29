// Package gpv downloads GPV source archives over HTTP into a local cache.
package gpv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
)

// Client fetches archives with a bounded timeout and no retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a fetch client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch downloads url to target unless target already exists. It reports
// whether a transfer happened. The body is written to a temporary file in the
// target directory and renamed into place, so an interrupted download never
// leaves a file that looks complete.
func (c *Client) Fetch(ctx context.Context, url, target string) (bool, error) {
	if _, err := os.Stat(target); err == nil {
		c.logger.Info("archive already cached, skipping download", "path", target)
		c.metrics.CacheHits.WithLabelValues(observability.StageFetch).Inc()
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("create data dir: %w", err)
	}

	c.logger.Info("downloading archive", "url", url, "path", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", domain.ErrTransport, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("%w: get %s: status %d: %s", domain.ErrTransport, url, resp.StatusCode, body)
	}

	n, err := writeAtomic(target, resp.Body)
	if err != nil {
		return false, err
	}
	c.metrics.FetchBytes.Add(float64(n))
	c.logger.Info("archive saved", "path", target, "bytes", n)
	return true, nil
}

// writeAtomic copies r into a temp file next to target, syncs it, and renames it over target.
func writeAtomic(target string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck // already failing
			os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return 0, fmt.Errorf("rename %s: %w", tmpName, err)
	}
	committed = true
	return n, nil
}
