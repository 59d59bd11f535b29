package gpv

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
)

func testClient() *Client {
	return NewClient(5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func archiveServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_Fetch_Downloads(t *testing.T) {
	srv, hits := archiveServer(t, http.StatusOK, "PK-archive-bytes")
	target := filepath.Join(t.TempDir(), "nested", "gsm.zip")
	c := testClient()

	fetched, err := c.Fetch(context.Background(), srv.URL+"/gsm.zip", target)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, int32(1), hits.Load())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "PK-archive-bytes", string(data))
	assert.InDelta(t, 16, testutil.ToFloat64(c.metrics.FetchBytes), 0)
}

func TestClient_Fetch_SkipsExistingTarget(t *testing.T) {
	srv, hits := archiveServer(t, http.StatusOK, "new")
	target := filepath.Join(t.TempDir(), "gsm.zip")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o600))
	c := testClient()

	for range 2 {
		fetched, err := c.Fetch(context.Background(), srv.URL, target)
		require.NoError(t, err)
		assert.False(t, fetched)
	}

	assert.Zero(t, hits.Load(), "cached archive must not be re-downloaded")
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.InDelta(t, 2, testutil.ToFloat64(c.metrics.CacheHits.WithLabelValues(observability.StageFetch)), 0)
}

func TestClient_Fetch_SecondCallIsNoop(t *testing.T) {
	srv, hits := archiveServer(t, http.StatusOK, "bytes")
	target := filepath.Join(t.TempDir(), "gsm.zip")
	c := testClient()

	_, err := c.Fetch(context.Background(), srv.URL, target)
	require.NoError(t, err)
	fetched, err := c.Fetch(context.Background(), srv.URL, target)
	require.NoError(t, err)

	assert.False(t, fetched)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	srv, _ := archiveServer(t, http.StatusNotFound, "missing")
	dir := t.TempDir()
	target := filepath.Join(dir, "gsm.zip")

	_, err := testClient().Fetch(context.Background(), srv.URL, target)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "404")

	assert.NoFileExists(t, target)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial file may be left behind")
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	target := filepath.Join(t.TempDir(), "gsm.zip")
	_, err := testClient().Fetch(context.Background(), url, target)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.NoFileExists(t, target)
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	srv, _ := archiveServer(t, http.StatusOK, "bytes")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := filepath.Join(t.TempDir(), "gsm.zip")
	_, err := testClient().Fetch(ctx, srv.URL, target)
	require.Error(t, err)
	assert.NoFileExists(t, target)
}
