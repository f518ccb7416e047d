package models

import "github.com/banshee-data/camctl/internal/sensor"

// IMX219 is the Sony IMX219 8MP sensor.
type IMX219 struct{ reciprocal }

func NewIMX219() *IMX219 {
	return &IMX219{reciprocal{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 1, VBlank: 2, HBlank: 2},
			diff:    4,
			minGain: 1.0,
			maxGain: 256.0 / 24.0,
		},
		scale:   256,
		maxCode: 232,
	}}
}

func (*IMX219) ModeSensitivity(sensor.Mode) float64 { return 1.0 }

// IMX290 is the Sony IMX290/IMX327 starvis sensor, gain in 0.3 dB steps.
type IMX290 struct{ decibel }

func NewIMX290() *IMX290 {
	return &IMX290{decibel{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
			diff:    2,
			minGain: 1.0,
			maxGain: 31.62,
		},
		stepDB:  0.3,
		maxCode: 240,
	}}
}

func (*IMX290) ModeSensitivity(sensor.Mode) float64 { return 1.0 }

// IMX296 is the Sony IMX296 global shutter sensor, gain in 0.1 dB steps.
type IMX296 struct{ decibel }

func NewIMX296() *IMX296 {
	return &IMX296{decibel{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 2, HBlank: 2},
			diff:    4,
			minGain: 1.0,
			maxGain: 251.1,
		},
		stepDB:  0.1,
		maxCode: 480,
	}}
}

func (*IMX296) ModeSensitivity(sensor.Mode) float64 { return 1.0 }

// IMX477 is the Sony IMX477 12MP sensor (HQ camera).
type IMX477 struct{ reciprocal }

func NewIMX477() *IMX477 {
	return &IMX477{reciprocal{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 3, HBlank: 3},
			diff:    22,
			minGain: 1.0,
			maxGain: 1024.0 / 46.0,
		},
		scale:   1024,
		maxCode: 978,
	}}
}

func (*IMX477) ModeSensitivity(sensor.Mode) float64 { return 1.0 }

// IMX708 is the Sony IMX708 12MP sensor. Its binned modes sum four pixels
// and are twice as sensitive as the full readout.
type IMX708 struct{ reciprocal }

const imx708FullWidth = 2304

func NewIMX708() *IMX708 {
	return &IMX708{reciprocal{
		base: base{
			delays:  sensor.Delays{Exposure: 2, Gain: 2, VBlank: 3, HBlank: 3},
			diff:    22,
			minGain: 1.0,
			maxGain: 16.0,
		},
		scale:   1024,
		maxCode: 960,
	}}
}

func (*IMX708) ModeSensitivity(mode sensor.Mode) float64 {
	if mode.Width > imx708FullWidth {
		return 1.0
	}
	return 2.0
}
