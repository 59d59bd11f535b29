package domain

import (
	"math"
	"time"
)

const kelvinOffset = 273.15

// Sample is one flattened grid point with converted quantities. Nil fields are absent.
type Sample struct {
	ValidTime        *time.Time `json:"valid_time"`
	LevelType        string     `json:"level_type"`
	Level            float64    `json:"level"`
	Lat              float64    `json:"lat"`
	Lon              float64    `json:"lon"`
	TempC            *float64   `json:"temp_C"`
	WindU            *float64   `json:"wind_u"`
	WindV            *float64   `json:"wind_v"`
	WindSpeed        *float64   `json:"wind_speed"`
	WindDirectionDeg *float64   `json:"wind_direction_deg"`
	GHI              *float64   `json:"ghi"`
}

// FieldMap lists candidate variable names per quantity; the first present wins.
type FieldMap struct {
	Temperature []string
	WindU       []string
	WindV       []string
	Radiation   []string
}

// DefaultFieldMap covers isobaric fields and their surface counterparts.
var DefaultFieldMap = FieldMap{
	Temperature: []string{"t", "2t"},
	WindU:       []string{"u", "10u"},
	WindV:       []string{"v", "10v"},
	Radiation:   []string{"dswrf", "sdswrf"},
}

// BuildOptions controls BuildSamples. A zero Limit takes every grid point.
type BuildOptions struct {
	Limit  int
	Fields FieldMap
}

// BuildSamples flattens the first level of ds into one sample per grid point,
// latitude outer and longitude inner, converting units on the way.
// Missing variables and NaN values leave the derived fields nil.
func BuildSamples(ds *Dataset, opts BuildOptions) ([]Sample, error) {
	level, err := ds.SelectLevel(0)
	if err != nil {
		return nil, err
	}
	fields := opts.Fields
	if fields.Temperature == nil && fields.WindU == nil && fields.WindV == nil && fields.Radiation == nil {
		fields = DefaultFieldMap
	}

	temp, _ := level.Field(fields.Temperature...)
	windU, _ := level.Field(fields.WindU...)
	windV, _ := level.Field(fields.WindV...)
	rad, _ := level.Field(fields.Radiation...)

	validTime := sampleTime(ds)

	n := ds.Points()
	if opts.Limit > 0 && opts.Limit < n {
		n = opts.Limit
	}
	samples := make([]Sample, 0, n)
	nlon := len(ds.Longitudes)

	for i := 0; i < n; i++ {
		s := Sample{
			ValidTime: validTime,
			LevelType: ds.LevelType,
			Level:     level.Level,
			Lat:       ds.Latitudes[i/nlon],
			Lon:       ds.Longitudes[i%nlon],
		}
		if k := valueAt(temp, i); k != nil {
			s.TempC = ptr(KelvinToCelsius(*k))
		}
		s.WindU = valueAt(windU, i)
		s.WindV = valueAt(windV, i)
		if s.WindU != nil && s.WindV != nil {
			s.WindSpeed = ptr(WindSpeed(*s.WindU, *s.WindV))
			s.WindDirectionDeg = ptr(WindDirection(*s.WindU, *s.WindV))
		}
		s.GHI = valueAt(rad, i)
		samples = append(samples, s)
	}
	return samples, nil
}

// KelvinToCelsius converts an absolute temperature to degrees Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}

// WindSpeed is the magnitude of the (u, v) wind vector.
func WindSpeed(u, v float64) float64 {
	return math.Hypot(u, v)
}

// WindDirection is the meteorological direction the wind blows from, in [0, 360):
// (270 - atan2(v, u) in degrees) mod 360.
func WindDirection(u, v float64) float64 {
	deg := math.Mod(270.0-math.Atan2(v, u)*180.0/math.Pi, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// sampleTime prefers the valid_time coordinate and falls back to the base time.
func sampleTime(ds *Dataset) *time.Time {
	switch {
	case !ds.ValidTime.IsZero():
		t := ds.ValidTime
		return &t
	case !ds.RunTime.IsZero():
		t := ds.RunTime
		return &t
	default:
		return nil
	}
}

func valueAt(field []float64, i int) *float64 {
	if field == nil || i >= len(field) || math.IsNaN(field[i]) {
		return nil
	}
	return ptr(field[i])
}

func ptr(v float64) *float64 { return &v }
