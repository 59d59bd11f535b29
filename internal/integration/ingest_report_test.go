//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/archive"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/eccodes"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/gpv"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/kafka"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/store"
	"github.com/couchcryptid/gpv-forecast-service/internal/config"
	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
	"github.com/couchcryptid/gpv-forecast-service/internal/observability"
	"github.com/couchcryptid/gpv-forecast-service/internal/pipeline"
)

const (
	testTopic  = "test-ingest-reports"
	testMember = "gsm_gl/Z__C_RJTD_20171205000000_GSM_GPV_Rgl_FD0006_grib2.bin"
)

// dumpOutput stands in for grib_dump -j on a 2x2 grid with temperature and wind at 1000 hPa.
func dumpOutput(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	msg := func(name string, values []float64) []map[string]any {
		keys := map[string]any{
			"shortName": name, "units": "K", "typeOfLevel": "isobaricInhPa", "level": 1000,
			"stepType": "instant", "numberOfPoints": 4,
			"dataDate": 20171205, "dataTime": 0, "forecastTime": 6, "indicatorOfUnitOfTimeRange": 1,
			"Ni": 2, "Nj": 2,
			"latitudeOfFirstGridPointInDegrees": 35.0, "longitudeOfFirstGridPointInDegrees": 139.0,
			"iDirectionIncrementInDegrees": 0.5, "jDirectionIncrementInDegrees": 0.5,
			"jScansPositively": 0, "missingValue": 9999, "bitmapPresent": 0,
			"values": values,
		}
		out := make([]map[string]any, 0, len(keys))
		for k, v := range keys {
			out = append(out, map[string]any{"key": k, "value": v})
		}
		return out
	}
	body, err := json.Marshal(map[string]any{"messages": []any{
		msg("t", []float64{288.15, 289.15, 290.15, 291.15}),
		msg("u", []float64{3, 3, 3, 3}),
		msg("v", []float64{4, 4, 4, 4}),
	}})
	return body, nil, err
}

// TestIngestPublishesReport runs a full ingest against a local archive server,
// a sqlite store and a real Kafka broker, then reads the published report back.
func TestIngestPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	archivePath := writeArchive(t, testMember, []byte("GRIB-bytes"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	}))
	t.Cleanup(srv.Close)

	dataDir := t.TempDir()
	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
		DB:           config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(dataDir, "weather.db")},
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	db, err := store.Open(ctx, cfg.DB, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(
		gpv.NewClient(10*time.Second, logger, metrics),
		archive.NewExtractor(dataDir, logger, metrics, archive.WithMember(testMember)),
		eccodes.NewDecoder("grib_dump", dumpOutput, logger),
		db,
		pipeline.Options{
			SourceURL:   srv.URL + "/gsm_gl.zip",
			ArchivePath: filepath.Join(dataDir, "gsm_gl_sample.zip"),
			Filter:      domain.Filter{"stepType": "instant"},
		},
		logger,
		metrics,
	).WithNotifier(writer)

	report, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)

	rows, err := db.ListForecasts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 35.0, rows[0].Lat)
	assert.Equal(t, 139.5, rows[1].Lon)
	assert.Equal(t, 34.5, rows[2].Lat)
	require.NotNil(t, rows[0].Temp2m)
	assert.InDelta(t, 15.0, *rows[0].Temp2m, 1e-9)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read ingest report")

	assert.Equal(t, report.RunID, string(msg.Key))
	var got domain.IngestReport
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, "replace", got.Mode)
	assert.Equal(t, filepath.Base(testMember), got.Member)
	assert.True(t, got.ForecastTime.Equal(time.Date(2017, time.December, 5, 6, 0, 0, 0, time.UTC)))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "replace", headers["mode"])
	_, err = time.Parse(time.RFC3339, headers["finished_at"])
	assert.NoError(t, err, "finished_at should be valid RFC3339")

	// A second run reuses the cached archive and grid file and replaces the rows.
	_, err = p.Run(ctx)
	require.NoError(t, err)
	rows, err = db.ListForecasts(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
