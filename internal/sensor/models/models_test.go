package models

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/units"
)

const relTol = 1e-9

type codec interface {
	sensor.ControlModel
	sensor.Limits
}

func builtinModels() map[string]codec {
	return map[string]codec{
		"imx219":  NewIMX219(),
		"imx290":  NewIMX290(),
		"imx296":  NewIMX296(),
		"imx477":  NewIMX477(),
		"imx708":  NewIMX708(),
		"ov5647":  NewOV5647(),
		"ov64a40": NewOV64A40(),
	}
}

func TestBuiltinsRegistered(t *testing.T) {
	names := sensor.Default().Names()
	for _, id := range Builtin() {
		assert.Contains(t, names, id)
	}

	m, err := sensor.Create("ov64a40")
	require.NoError(t, err)
	assert.Equal(t, sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2}, m.Delays())

	_, err = sensor.Create("imx999")
	assert.True(t, errors.Is(err, ctlerr.ErrConfiguration))
	assert.True(t, errors.Is(err, sensor.ErrNotFound))
}

func TestRegisterBuiltinPrivateRegistry(t *testing.T) {
	reg := sensor.NewRegistry()
	require.NoError(t, RegisterBuiltin(reg))
	assert.Equal(t, Builtin(), reg.Names())

	err := RegisterBuiltin(reg)
	assert.True(t, errors.Is(err, sensor.ErrDuplicate))
}

func TestDelaysTable(t *testing.T) {
	want := map[string]sensor.Delays{
		"imx219":  {Exposure: 2, Gain: 1, VBlank: 2, HBlank: 2},
		"imx290":  {Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
		"imx296":  {Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
		"imx477":  {Exposure: 2, Gain: 2, VBlank: 3, HBlank: 3},
		"imx708":  {Exposure: 2, Gain: 2, VBlank: 3, HBlank: 3},
		"ov5647":  {Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
		"ov64a40": {Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
	}
	for id, m := range builtinModels() {
		assert.Equal(t, want[id], m.Delays(), id)
		// Delays are mode independent and stable across calls.
		assert.Equal(t, m.Delays(), m.Delays(), id)
	}
	assert.Equal(t, uint32(4), NewOV64A40().FrameIntegrationDiff())
}

func TestOV64A40GainCode(t *testing.T) {
	m := NewOV64A40()
	assert.Equal(t, uint32(128), m.GainCode(1.0))
	assert.Equal(t, uint32(320), m.GainCode(2.5))
	assert.Equal(t, uint32(255), m.GainCode(1.999)) // truncates
	assert.Equal(t, 2.5, m.Gain(320))
	assert.Equal(t, 1.0, m.Gain(128))
}

func TestKnownEncodings(t *testing.T) {
	assert.Equal(t, uint32(128), NewIMX219().GainCode(2.0))
	assert.Equal(t, 2.0, NewIMX219().Gain(128))
	assert.Equal(t, uint32(768), NewIMX477().GainCode(4.0))
	assert.Equal(t, 4.0, NewIMX477().Gain(768))
	assert.Equal(t, uint32(64), NewOV5647().GainCode(4.0))
	assert.Equal(t, uint32(0), NewIMX290().GainCode(1.0))
	assert.InDelta(t, 10.0, NewIMX296().Gain(200), 1e-9)
}

func TestDecibelEncodingsUseGainDecibels(t *testing.T) {
	imx290, imx296 := NewIMX290(), NewIMX296()

	assert.Equal(t, uint32(20), imx290.GainCode(2.0))
	assert.Equal(t, uint32(40), imx290.GainCode(4.0))
	assert.InDelta(t, units.DBToGain(6.0), imx290.Gain(20), 1e-12)
	assert.InDelta(t, units.DBToGain(12.0), imx290.Gain(40), 1e-12)
	assert.Equal(t, uint32(60), imx296.GainCode(2.0))
	assert.InDelta(t, 2.0, units.DBToGain(units.GainToDB(imx296.Gain(60))), 0.01)
}

func TestEncodingsClampOutOfRange(t *testing.T) {
	for id, m := range builtinModels() {
		assert.Equal(t, uint32(0), m.GainCode(0), id)
		assert.Equal(t, uint32(0), m.GainCode(-3), id)
		huge := m.GainCode(1e9)
		assert.Equal(t, m.GainCode(1e12), huge, id)
		assert.False(t, m.Gain(huge) < 1, id)
	}
}

// gain(code(g)) must be the largest representable gain not above g.
func TestGainCodeRoundTripProperty(t *testing.T) {
	for id, m := range builtinModels() {
		t.Run(id, func(t *testing.T) {
			lo, hi := m.GainRange()
			top := m.GainCode(hi * 1e6)

			parameters := gopter.DefaultTestParameters()
			parameters.MinSuccessfulTests = 500
			properties := gopter.NewProperties(parameters)

			properties.Property("gain(code(g)) <= g < gain(code(g)+1)", prop.ForAll(
				func(g float64) bool {
					c := m.GainCode(g)
					if m.Gain(c) > g*(1+relTol) {
						return false
					}
					if c == top {
						return true
					}
					return m.Gain(c+1) > g*(1-relTol)
				},
				gen.Float64Range(lo, hi),
			))

			properties.Property("encoding is monotonic", prop.ForAll(
				func(a, b float64) bool {
					if a > b {
						a, b = b, a
					}
					return m.GainCode(a) <= m.GainCode(b)
				},
				gen.Float64Range(lo, hi),
				gen.Float64Range(lo, hi),
			))

			properties.TestingRun(t)
		})
	}
}

func mode(width uint32, binX uint32, scaleX float64) sensor.Mode {
	return sensor.Mode{
		Width: width, Height: width * 3 / 4, BitDepth: 10,
		BinX: binX, BinY: binX, ScaleX: scaleX, ScaleY: scaleX,
		LineLength: 20 * time.Microsecond,
		MinShutter: 100 * time.Microsecond, MaxShutter: time.Second,
		MinAnalogueGain: 1, MaxAnalogueGain: 16,
	}
}

func TestOV64A40Sensitivity(t *testing.T) {
	m := NewOV64A40()
	tests := []struct {
		binX   uint32
		scaleX float64
		want   float64
	}{
		{2, 4, 4.0},
		{2, 2, 2.0},
		{1, 1, 1.0},
		{1, 4, 1.0},
		{2, 1, 1.0},
		{4, 8, 4.0},
	}
	for _, tt := range tests {
		got := m.ModeSensitivity(mode(9248, tt.binX, tt.scaleX))
		assert.Equal(t, tt.want, got, "binX=%d scaleX=%g", tt.binX, tt.scaleX)
	}
}

func TestIMX708Sensitivity(t *testing.T) {
	m := NewIMX708()
	assert.Equal(t, 1.0, m.ModeSensitivity(mode(4608, 1, 1)))
	assert.Equal(t, 2.0, m.ModeSensitivity(mode(2304, 2, 2)))
}

func TestSensitivityAtLeastOne(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	models := builtinModels()

	properties.Property("ModeSensitivity >= 1", prop.ForAll(
		func(width, binX uint32, scaleX float64) bool {
			md := mode(width, binX, scaleX)
			for _, m := range models {
				if m.ModeSensitivity(md) < 1.0 {
					return false
				}
			}
			return true
		},
		gen.UInt32Range(64, 10000),
		gen.UInt32Range(1, 4),
		gen.Float64Range(1, 8),
	))

	properties.TestingRun(t)
}
