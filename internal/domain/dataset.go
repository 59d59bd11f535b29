package domain

import (
	"fmt"
	"math"
	"time"
)

// Dataset is a decoded labeled grid for one level type, one base time and one step.
type Dataset struct {
	LevelType  string
	Levels     []float64
	Latitudes  []float64
	Longitudes []float64

	// RunTime is the base "time" coordinate. Zero when the source has none.
	RunTime time.Time
	Step    time.Duration
	HasStep bool
	// ValidTime is the "valid_time" coordinate. Zero when it cannot be derived.
	ValidTime time.Time

	Variables map[string]*Variable
}

// Variable holds one physical field across the dataset's levels.
type Variable struct {
	Name  string
	Units string
	// Fields is parallel to Dataset.Levels; a nil entry means no data at that level.
	Fields [][]float64
}

// NewDataset creates an empty dataset on a regular latitude/longitude grid.
func NewDataset(levelType string, lats, lons []float64) *Dataset {
	return &Dataset{
		LevelType:  levelType,
		Latitudes:  lats,
		Longitudes: lons,
		Variables:  make(map[string]*Variable),
	}
}

// Points returns the number of grid points per level field.
func (d *Dataset) Points() int {
	return len(d.Latitudes) * len(d.Longitudes)
}

// LevelIndex returns the index of level, appending it if it is new.
func (d *Dataset) LevelIndex(level float64) int {
	for i, l := range d.Levels {
		if l == level {
			return i
		}
	}
	d.Levels = append(d.Levels, level)
	for _, v := range d.Variables {
		v.Fields = append(v.Fields, nil)
	}
	return len(d.Levels) - 1
}

// SetField stores values for variable name at level. It reports false when the
// (variable, level) pair already holds data, leaving the first field in place.
func (d *Dataset) SetField(name, units string, level float64, values []float64) (bool, error) {
	if len(values) != d.Points() {
		return false, fmt.Errorf("%w: %s at level %g has %d values, grid has %d points",
			ErrDecode, name, level, len(values), d.Points())
	}
	idx := d.LevelIndex(level)
	v, ok := d.Variables[name]
	if !ok {
		v = &Variable{Name: name, Units: units, Fields: make([][]float64, len(d.Levels))}
		d.Variables[name] = v
	}
	if v.Fields[idx] != nil {
		return false, nil
	}
	v.Fields[idx] = values
	return true, nil
}

// LevelSlice is one vertical level of a dataset.
type LevelSlice struct {
	Dataset *Dataset
	Level   float64
	index   int
}

// SelectLevel returns the level at position i along the level dimension.
func (d *Dataset) SelectLevel(i int) (LevelSlice, error) {
	if i < 0 || i >= len(d.Levels) {
		return LevelSlice{}, fmt.Errorf("%w: level index %d out of range, dataset has %d levels",
			ErrDecode, i, len(d.Levels))
	}
	return LevelSlice{Dataset: d, Level: d.Levels[i], index: i}, nil
}

// Field returns the values of the first variable in names that has data at this level.
func (s LevelSlice) Field(names ...string) ([]float64, bool) {
	for _, name := range names {
		v, ok := s.Dataset.Variables[name]
		if !ok || s.index >= len(v.Fields) || v.Fields[s.index] == nil {
			continue
		}
		return v.Fields[s.index], true
	}
	return nil, false
}

// RegularAxis returns n coordinates starting at first and advancing by step.
func RegularAxis(first, step float64, n int) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		// Round to microdegrees so 0.1-style increments do not accumulate drift.
		axis[i] = math.Round((first+float64(i)*step)*1e6) / 1e6
	}
	return axis
}
