package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/sensor"
)

// Table describes a sensor whose gain encoding is only known as measured
// (gain, code) pairs, as shipped in tuning files.
type Table struct {
	Delays               sensor.Delays
	Gains                []float64 // strictly increasing
	Codes                []float64 // strictly increasing, same length as Gains
	FrameIntegrationDiff uint32
	Sensitivity          sensor.Staircase
}

// Tabulated interpolates a Table piecewise-linearly in both directions.
// Outside the table the end points are used.
type Tabulated struct {
	table   Table
	toCode  interp.PiecewiseLinear
	toGain  interp.PiecewiseLinear
	maxCode uint32
}

// NewTabulated fits both interpolants. The table must have at least two
// points, be strictly increasing in gain and code and declare no delay
// above sensor.MaxDelay.
func NewTabulated(t Table) (*Tabulated, error) {
	if len(t.Gains) != len(t.Codes) {
		return nil, fmt.Errorf("gain table: %d gains but %d codes", len(t.Gains), len(t.Codes))
	}
	if len(t.Gains) < 2 {
		return nil, errors.New("gain table: need at least two points")
	}
	if t.Gains[0] <= 0 || t.Codes[0] < 0 {
		return nil, errors.New("gain table: gains must be positive and codes non-negative")
	}
	if !strictlyIncreasing(t.Gains) || !strictlyIncreasing(t.Codes) {
		return nil, errors.New("gain table: gains and codes must be strictly increasing")
	}
	if err := t.Delays.Validate(); err != nil {
		return nil, err
	}

	tab := &Tabulated{table: t}
	if err := tab.toCode.Fit(t.Gains, t.Codes); err != nil {
		return nil, fmt.Errorf("gain table: fit gain->code: %w", err)
	}
	if err := tab.toGain.Fit(t.Codes, t.Gains); err != nil {
		return nil, fmt.Errorf("gain table: fit code->gain: %w", err)
	}
	tab.maxCode = uint32(math.Floor(t.Codes[len(t.Codes)-1]))
	return tab, nil
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

func (t *Tabulated) GainCode(gain float64) uint32 {
	return truncCode(t.toCode.Predict(gain), t.maxCode)
}

func (t *Tabulated) Gain(code uint32) float64 {
	return t.toGain.Predict(float64(code))
}

func (t *Tabulated) Delays() sensor.Delays { return t.table.Delays }

func (t *Tabulated) ModeSensitivity(mode sensor.Mode) float64 {
	return t.table.Sensitivity.Lookup(mode)
}

func (t *Tabulated) GainRange() (min, max float64) {
	return t.table.Gains[0], t.table.Gains[len(t.table.Gains)-1]
}

func (t *Tabulated) FrameIntegrationDiff() uint32 { return t.table.FrameIntegrationDiff }

// RegisterTabulated validates t and registers it under id. The table is
// copied so later edits by the caller do not leak into the model.
func RegisterTabulated(reg *sensor.Registry, id string, t Table) error {
	t.Gains = append([]float64(nil), t.Gains...)
	t.Codes = append([]float64(nil), t.Codes...)
	t.Sensitivity = append(sensor.Staircase(nil), t.Sensitivity...)

	if _, err := NewTabulated(t); err != nil {
		return ctlerr.Configuration("register", id, err)
	}
	return reg.Register(id, func() sensor.ControlModel {
		m, _ := NewTabulated(t)
		return m
	})
}
