package models

import (
	"math"

	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/units"
)

// truncCode converts a real-valued register code to the integer the driver
// writes, truncating toward zero and clamping into [0, max].
func truncCode(v float64, max uint32) uint32 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(max) {
		return max
	}
	return uint32(v)
}

// base carries the datasheet facts every built-in model shares.
type base struct {
	delays  sensor.Delays
	diff    uint32
	minGain float64
	maxGain float64
}

func (b base) Delays() sensor.Delays { return b.delays }

func (b base) GainRange() (min, max float64) { return b.minGain, b.maxGain }

func (b base) FrameIntegrationDiff() uint32 { return b.diff }

// reciprocal is the "N - N/g" encoding used by several Sony parts.
type reciprocal struct {
	base
	scale   float64
	maxCode uint32
}

func (r reciprocal) GainCode(gain float64) uint32 {
	if gain <= 0 {
		return 0
	}
	return truncCode(r.scale-r.scale/gain, r.maxCode)
}

func (r reciprocal) Gain(code uint32) float64 {
	if code > r.maxCode {
		code = r.maxCode
	}
	return r.scale / (r.scale - float64(code))
}

// decibel encodes gain in fixed dB steps: code = 20*log10(g)/step.
type decibel struct {
	base
	stepDB  float64
	maxCode uint32
}

func (d decibel) GainCode(gain float64) uint32 {
	if gain <= 0 {
		return 0
	}
	return truncCode(units.GainToDB(gain)/d.stepDB, d.maxCode)
}

func (d decibel) Gain(code uint32) float64 {
	if code > d.maxCode {
		code = d.maxCode
	}
	return units.DBToGain(float64(code) * d.stepDB)
}

// linear encodes gain as a fixed-point multiplier: code = g*scale.
type linear struct {
	base
	scale   float64
	maxCode uint32
}

func (l linear) GainCode(gain float64) uint32 {
	return truncCode(gain*l.scale, l.maxCode)
}

func (l linear) Gain(code uint32) float64 {
	if code > l.maxCode {
		code = l.maxCode
	}
	return float64(code) / l.scale
}
