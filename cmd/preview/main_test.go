package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

func TestPrintSamples(t *testing.T) {
	valid := time.Date(2017, time.December, 5, 6, 0, 0, 0, time.UTC)
	temp := 15.0
	samples := []domain.Sample{{ValidTime: &valid, LevelType: "isobaricInhPa", Level: 1000, Lat: 90, Lon: 0, TempC: &temp}}

	var buf bytes.Buffer
	require.NoError(t, printSamples(&buf, samples))

	assert.Contains(t, buf.String(), "\n  {\n    \"valid_time\"")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "2017-12-05T06:00:00Z", got[0]["valid_time"])
	assert.InDelta(t, 15.0, got[0]["temp_C"], 1e-9)
	assert.Nil(t, got[0]["wind_speed"])
	assert.Contains(t, got[0], "wind_direction_deg")
}
