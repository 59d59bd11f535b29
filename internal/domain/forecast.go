package domain

import (
	"fmt"
	"time"
)

// Mapping selects how built samples fill the physical columns of forecast rows.
type Mapping string

const (
	// MappingConverted stores the unit-converted sample values.
	MappingConverted Mapping = "converted"
	// MappingScaffold stores coordinates and times only, leaving physical fields null.
	MappingScaffold Mapping = "scaffold"
)

// ParseMapping validates a mapping name.
func ParseMapping(s string) (Mapping, error) {
	switch m := Mapping(s); m {
	case MappingConverted, MappingScaffold:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mapping %q (want converted or scaffold)", ErrValidation, s)
	}
}

// Mode selects whether an ingest run replaces or extends the forecasts table.
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// ParseMode validates an ingest mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeReplace, ModeAppend:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown ingest mode %q (want replace or append)", ErrValidation, s)
	}
}

// ForecastTimes derives run_time and forecast_time for rows built from ds.
// run_time falls back to now when the dataset has no time coordinate;
// forecast_time falls back to run_time when no step can be applied.
func ForecastTimes(ds *Dataset, now time.Time) (runTime, forecastTime time.Time) {
	runTime = ds.RunTime
	if runTime.IsZero() {
		if !ds.ValidTime.IsZero() {
			return ds.ValidTime, ds.ValidTime
		}
		return now, now
	}
	switch {
	case !ds.ValidTime.IsZero():
		forecastTime = ds.ValidTime
	case ds.HasStep:
		forecastTime = runTime.Add(ds.Step)
	default:
		forecastTime = runTime
	}
	return runTime, forecastTime
}

// MapForecasts converts built samples into forecast rows.
func MapForecasts(ds *Dataset, samples []Sample, mapping Mapping, now time.Time) []Forecast {
	runTime, forecastTime := ForecastTimes(ds, now)
	rows := make([]Forecast, len(samples))
	for i, s := range samples {
		rows[i] = Forecast{
			RunTime:      runTime,
			ForecastTime: forecastTime,
			Lat:          s.Lat,
			Lon:          s.Lon,
		}
		if mapping == MappingScaffold {
			continue
		}
		rows[i].Temp2m = s.TempC
		rows[i].Wind10mU = s.WindU
		rows[i].Wind10mV = s.WindV
		rows[i].GHI = s.GHI
	}
	return rows
}

// DemoForecasts returns the fixed rows used to seed an empty forecasts table.
func DemoForecasts(now time.Time) []Forecast {
	return []Forecast{
		{RunTime: now, ForecastTime: now, Lat: 35.0, Lon: 139.0,
			Temp2m: ptr(15.0), Wind10mU: ptr(1.0), Wind10mV: ptr(0.5), GHI: ptr(300.0)},
		{RunTime: now, ForecastTime: now, Lat: 43.0, Lon: 141.0,
			Temp2m: ptr(5.0), Wind10mU: ptr(3.0), Wind10mV: ptr(-1.0), GHI: ptr(150.0)},
	}
}

// DemoWeatherSamples returns the fixed rows used to seed an empty weather_samples table.
func DemoWeatherSamples() []WeatherSample {
	return []WeatherSample{
		{Location: "Tokyo", TempC: 15.2},
		{Location: "Sapporo", TempC: 4.8},
		{Location: "Naha", TempC: 22.6},
	}
}
