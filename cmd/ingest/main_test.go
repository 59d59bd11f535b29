package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
)

func TestPushMetrics(t *testing.T) {
	var gotPath string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	var logs bytes.Buffer
	cfg := &config.Config{PushgatewayURL: gateway.URL, PushgatewayJob: "gpv-ingest", ShutdownTimeout: 5 * time.Second}
	pushMetrics(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Equal(t, "/metrics/job/gpv-ingest", gotPath)
	assert.Contains(t, logs.String(), "metrics pushed")
}

func TestPushMetrics_FailureIsLogged(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer gateway.Close()

	var logs bytes.Buffer
	cfg := &config.Config{PushgatewayURL: gateway.URL, PushgatewayJob: "gpv-ingest", ShutdownTimeout: 5 * time.Second}
	pushMetrics(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Contains(t, logs.String(), "metrics push failed")
	assert.Contains(t, logs.String(), "503")
}
