package models

import "github.com/banshee-data/camctl/internal/sensor"

// OV5647 is the OmniVision OV5647 5MP sensor, gain in 1/16 steps.
type OV5647 struct{ linear }

func NewOV5647() *OV5647 {
	return &OV5647{linear{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
			diff:    4,
			minGain: 1.0,
			maxGain: 1023.0 / 16.0,
		},
		scale:   16,
		maxCode: 1023,
	}}
}

func (*OV5647) ModeSensitivity(sensor.Mode) float64 { return 1.0 }

// OV64A40 is the OmniVision OV64A40 64MP sensor, gain in 1/128 steps.
type OV64A40 struct {
	linear
	stairs sensor.Staircase
}

func NewOV64A40() *OV64A40 {
	return &OV64A40{
		linear: linear{
			base: base{
				// The driver appears to behave this way; no datasheet figure.
				delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
				diff:    4,
				minGain: 1.0,
				maxGain: 2047.0 / 128.0,
			},
			scale:   128,
			maxCode: 2047,
		},
		stairs: sensor.Staircase{
			{MinBinX: 2, MinScaleX: 4, Factor: 4.0},
			{MinBinX: 2, MinScaleX: 2, Factor: 2.0},
		},
	}
}

// ModeSensitivity is 4x for binned modes scaled by 4 or more, 2x for binned
// modes scaled by 2 or more, else 1x.
func (o *OV64A40) ModeSensitivity(mode sensor.Mode) float64 {
	return o.stairs.Lookup(mode)
}
