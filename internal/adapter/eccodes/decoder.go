// Package eccodes decodes GRIB files into datasets by running the ecCodes
// grib_dump tool in JSON mode and assembling the matching messages.
package eccodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

// Runner executes the dump tool and returns its stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs the tool as a subprocess.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Decoder turns a GRIB file into a single-level-type dataset.
type Decoder struct {
	binary string
	run    Runner
	logger *slog.Logger
}

// NewDecoder creates a decoder that invokes binary (usually "grib_dump").
func NewDecoder(binary string, run Runner, logger *slog.Logger) *Decoder {
	if run == nil {
		run = ExecRunner
	}
	return &Decoder{binary: binary, run: run, logger: logger}
}

// Decode dumps path and assembles the messages matching filter.
func (d *Decoder) Decode(ctx context.Context, path string, filter domain.Filter) (*domain.Dataset, error) {
	stdout, stderr, err := d.run(ctx, d.binary, "-j", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -j %s: %w: %s", domain.ErrDecode, d.binary, path,
			err, strings.TrimSpace(string(stderr)))
	}

	ds, stats, err := Parse(bytes.NewReader(stdout), filter)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	d.logger.Info("grid decoded",
		"path", path,
		"filter", filter.String(),
		"messages", stats.Messages,
		"used", stats.Used,
		"ignored", stats.Ignored,
		"level_type", ds.LevelType,
		"levels", len(ds.Levels),
		"variables", len(ds.Variables),
	)
	return ds, nil
}

// Stats counts what happened to the messages of one dump.
type Stats struct {
	Messages int
	Used     int
	Ignored  int
}

type dump struct {
	Messages [][]keyValue `json:"messages"`
}

type keyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// header holds the message keys the assembler needs.
type header struct {
	ShortName      string  `mapstructure:"shortName"`
	CFVarName      string  `mapstructure:"cfVarName"`
	ParamID        int     `mapstructure:"paramId"`
	Units          string  `mapstructure:"units"`
	TypeOfLevel    string  `mapstructure:"typeOfLevel"`
	Level          float64 `mapstructure:"level"`
	NumberOfPoints int     `mapstructure:"numberOfPoints"`

	DataDate     *int `mapstructure:"dataDate"`
	DataTime     *int `mapstructure:"dataTime"`
	ForecastTime *int `mapstructure:"forecastTime"`
	TimeUnit     *int `mapstructure:"indicatorOfUnitOfTimeRange"`
	ValidityDate *int `mapstructure:"validityDate"`
	ValidityTime *int `mapstructure:"validityTime"`

	Ni               int     `mapstructure:"Ni"`
	Nj               int     `mapstructure:"Nj"`
	LatFirst         float64 `mapstructure:"latitudeOfFirstGridPointInDegrees"`
	LonFirst         float64 `mapstructure:"longitudeOfFirstGridPointInDegrees"`
	IIncrement       float64 `mapstructure:"iDirectionIncrementInDegrees"`
	JIncrement       float64 `mapstructure:"jDirectionIncrementInDegrees"`
	JScansPositively int     `mapstructure:"jScansPositively"`
	IScansNegatively int     `mapstructure:"iScansNegatively"`

	MissingValue  float64   `mapstructure:"missingValue"`
	BitmapPresent int       `mapstructure:"bitmapPresent"`
	Values        []float64 `mapstructure:"values"`
}

// signature is what every message of one dataset must agree on.
type signature struct {
	levelType        string
	ni, nj           int
	latFirst         float64
	lonFirst         float64
	iInc, jInc       float64
	jScansPositively int
	iScansNegatively int
	runTime          time.Time
	step             time.Duration
	hasStep          bool
	validTime        time.Time
}

// Parse assembles a dataset from grib_dump JSON output. The first message
// matching filter fixes the level type, grid and times; later messages that
// disagree are ignored, as are messages whose keys cannot be decoded.
func Parse(r io.Reader, filter domain.Filter) (*domain.Dataset, Stats, error) {
	var stats Stats
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, stats, fmt.Errorf("%w: invalid grib_dump output: %w", domain.ErrDecode, err)
	}
	stats.Messages = len(d.Messages)

	var (
		ds  *domain.Dataset
		sig signature
	)
	for _, msg := range d.Messages {
		keys := keyMap(msg)
		if !filter.Matches(keys) {
			continue
		}
		h, err := decodeHeader(keys)
		if err != nil || h.Ni <= 0 || h.Nj <= 0 || len(h.Values) != h.Ni*h.Nj {
			stats.Ignored++
			continue
		}

		s := h.signature()
		if ds == nil {
			sig = s
			ds = newDataset(s)
		} else if s != sig {
			stats.Ignored++
			continue
		}

		added, err := ds.SetField(h.variableName(), h.Units, h.Level, h.fieldValues())
		if err != nil || !added {
			stats.Ignored++
			continue
		}
		stats.Used++
	}

	if ds == nil {
		return nil, stats, fmt.Errorf("%w: no message matches filter %q", domain.ErrDecode, filter.String())
	}
	return ds, stats, nil
}

// keyMap flattens a message's key list. Repeated keys keep their first value;
// "MISSING" markers are dropped so they read as absent.
func keyMap(msg []keyValue) map[string]any {
	keys := make(map[string]any, len(msg))
	for _, kv := range msg {
		if s, ok := kv.Value.(string); ok && s == "MISSING" {
			continue
		}
		if _, seen := keys[kv.Key]; !seen {
			keys[kv.Key] = kv.Value
		}
	}
	return keys
}

func decodeHeader(keys map[string]any) (header, error) {
	var h header
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &h,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return h, err
	}
	if err := dec.Decode(keys); err != nil {
		return h, err
	}
	return h, nil
}

func newDataset(s signature) *domain.Dataset {
	jStep := -s.jInc
	if s.jScansPositively != 0 {
		jStep = s.jInc
	}
	iStep := s.iInc
	if s.iScansNegatively != 0 {
		iStep = -s.iInc
	}
	ds := domain.NewDataset(s.levelType,
		domain.RegularAxis(s.latFirst, jStep, s.nj),
		domain.RegularAxis(s.lonFirst, iStep, s.ni),
	)
	ds.RunTime = s.runTime
	ds.Step = s.step
	ds.HasStep = s.hasStep
	ds.ValidTime = s.validTime
	return ds
}

func (h header) signature() signature {
	s := signature{
		levelType:        h.TypeOfLevel,
		ni:               h.Ni,
		nj:               h.Nj,
		latFirst:         h.LatFirst,
		lonFirst:         h.LonFirst,
		iInc:             h.IIncrement,
		jInc:             h.JIncrement,
		jScansPositively: h.JScansPositively,
		iScansNegatively: h.IScansNegatively,
	}
	if h.DataDate != nil {
		hhmm := 0
		if h.DataTime != nil {
			hhmm = *h.DataTime
		}
		s.runTime = dateTime(*h.DataDate, hhmm)
	}
	if h.ForecastTime != nil && h.TimeUnit != nil {
		if unit, ok := timeUnits[*h.TimeUnit]; ok {
			s.step = time.Duration(*h.ForecastTime) * unit
			s.hasStep = true
		}
	}
	switch {
	case h.ValidityDate != nil:
		hhmm := 0
		if h.ValidityTime != nil {
			hhmm = *h.ValidityTime
		}
		s.validTime = dateTime(*h.ValidityDate, hhmm)
	case s.hasStep && !s.runTime.IsZero():
		s.validTime = s.runTime.Add(s.step)
	}
	return s
}

func (h header) variableName() string {
	switch {
	case h.ShortName != "" && h.ShortName != "unknown":
		return h.ShortName
	case h.CFVarName != "" && h.CFVarName != "unknown":
		return h.CFVarName
	default:
		return fmt.Sprintf("p%d", h.ParamID)
	}
}

// fieldValues returns the message values with bitmap-masked points as NaN.
func (h header) fieldValues() []float64 {
	if h.BitmapPresent == 0 {
		return h.Values
	}
	out := make([]float64, len(h.Values))
	for i, v := range h.Values {
		if v == h.MissingValue {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

// timeUnits maps GRIB code table 4.4 to durations.
var timeUnits = map[int]time.Duration{
	0:  time.Minute,
	1:  time.Hour,
	2:  24 * time.Hour,
	10: 3 * time.Hour,
	11: 6 * time.Hour,
	12: 12 * time.Hour,
	13: time.Second,
}

// dateTime combines a YYYYMMDD date and an HHMM time into a UTC instant.
func dateTime(yyyymmdd, hhmm int) time.Time {
	return time.Date(yyyymmdd/10000, time.Month(yyyymmdd/100%100), yyyymmdd%100,
		hhmm/100, hhmm%100, 0, 0, time.UTC)
}
