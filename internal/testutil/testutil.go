// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability. It depends only on
// the sensor package so any package under test can import it.
package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/camctl/internal/sensor"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Mode1080p returns a 1920x1080 unbinned mode with a 15us line, frame
// lengths 1125..65535 lines and gain 1..16.
func Mode1080p() sensor.Mode {
	return sensor.Mode{
		Width: 1920, Height: 1080, BitDepth: 10,
		BinX: 1, BinY: 1, ScaleX: 1, ScaleY: 1,
		LineLength:      15 * time.Microsecond,
		HBlank:          280,
		MinFrameLength:  1125,
		MaxFrameLength:  65535,
		MinShutter:      30 * time.Microsecond,
		MaxShutter:      time.Second,
		MinAnalogueGain: 1.0,
		MaxAnalogueGain: 16.0,
	}
}

// ModeBinned returns a 2x2 binned mode scaled by scale from a full array of
// width x height.
func ModeBinned(width, height uint32, scale float64) sensor.Mode {
	m := Mode1080p()
	m.Width = uint32(float64(width) / scale)
	m.Height = uint32(float64(height) / scale)
	m.BinX, m.BinY = 2, 2
	m.ScaleX, m.ScaleY = scale, scale
	m.MinFrameLength = m.Height + 20
	return m
}

// FakeModel is a configurable linear sensor model: code = gain * Scale.
type FakeModel struct {
	Scale       float64
	DelayValues sensor.Delays
	Sensitivity float64
	MinGain     float64
	MaxGain     float64
	Diff        uint32
}

// NewFakeModel returns a model with 1/16 gain steps, gain 1..16, the given
// delays and a frame/integration gap of 4 lines.
func NewFakeModel(d sensor.Delays) *FakeModel {
	return &FakeModel{Scale: 16, DelayValues: d, Sensitivity: 1, MinGain: 1, MaxGain: 16, Diff: 4}
}

func (f *FakeModel) GainCode(gain float64) uint32 {
	if gain <= 0 {
		return 0
	}
	return uint32(gain * f.Scale)
}

func (f *FakeModel) Gain(code uint32) float64 { return float64(code) / f.Scale }

func (f *FakeModel) Delays() sensor.Delays { return f.DelayValues }

func (f *FakeModel) ModeSensitivity(sensor.Mode) float64 { return f.Sensitivity }

func (f *FakeModel) GainRange() (min, max float64) { return f.MinGain, f.MaxGain }

func (f *FakeModel) FrameIntegrationDiff() uint32 { return f.Diff }

// Registry returns a fresh registry holding model under id.
func Registry(t *testing.T, id string, model sensor.ControlModel) *sensor.Registry {
	t.Helper()
	r := sensor.NewRegistry()
	AssertNoError(t, r.Register(id, func() sensor.ControlModel { return model }))
	return r
}
