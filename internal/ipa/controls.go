package ipa

import (
	"fmt"
	"image"
	"time"
)

// NoiseReductionMode selects the denoise strength requested by the
// application.
type NoiseReductionMode int

const (
	NoiseReductionOff NoiseReductionMode = iota
	NoiseReductionFast
	NoiseReductionHighQuality
	NoiseReductionMinimal
	NoiseReductionZSL
)

var noiseReductionNames = map[NoiseReductionMode]string{
	NoiseReductionOff:         "off",
	NoiseReductionFast:        "fast",
	NoiseReductionHighQuality: "high_quality",
	NoiseReductionMinimal:     "minimal",
	NoiseReductionZSL:         "zsl",
}

func (m NoiseReductionMode) String() string {
	if s, ok := noiseReductionNames[m]; ok {
		return s
	}
	return fmt.Sprintf("NoiseReductionMode(%d)", int(m))
}

// Controls are the per-request application controls. A nil field leaves the
// current setting alone.
type Controls struct {
	AeEnable     *bool
	ExposureTime *time.Duration
	AnalogueGain *float64

	AwbEnable         *bool
	ColourGains       *ColourGains
	ColourTemperature *float64

	Brightness *float64 // [-1, 1]
	Contrast   *float64 // [0, 2)
	Saturation *float64 // [0, 2)

	Sharpness          *float64 // [0, 10]
	NoiseReductionMode *NoiseReductionMode
}

// AgcParams programs the exposure statistics block.
type AgcParams struct {
	MeasureWindow image.Rectangle
	HistogramBins int
}

// AwbParams programs the white balance gains and measurement block.
type AwbParams struct {
	Gains         ColourGains
	MeasureWindow image.Rectangle
	Enabled       bool
}

// CprocParams programs colour processing.
type CprocParams struct {
	Brightness int8
	Contrast   uint8
	Saturation uint8
}

// DpfParams programs the denoise pre-filter.
type DpfParams struct {
	Enabled bool
}

// FilterParams programs the denoise/sharpen filter.
type FilterParams struct {
	Denoise   uint8
	Sharpness uint8
}

// LscParams programs lens shading correction.
type LscParams struct {
	Enabled bool
	Table   []uint16
}

// Params is the ISP parameter buffer for one frame. A nil block means the
// hardware keeps its previous programming.
type Params struct {
	Frame  uint32
	Agc    *AgcParams
	Awb    *AwbParams
	Cproc  *CprocParams
	Dpf    *DpfParams
	Filter *FilterParams
	Lsc    *LscParams
}

// Empty reports whether no block needs updating.
func (p *Params) Empty() bool {
	return p.Agc == nil && p.Awb == nil && p.Cproc == nil && p.Dpf == nil && p.Filter == nil && p.Lsc == nil
}

// ZoneMeans are the average channel values of one AWB measurement zone,
// normalised to [0, 1].
type ZoneMeans struct {
	Red   float64
	Green float64
	Blue  float64
}

// Statistics are the ISP measurements for one frame.
type Statistics struct {
	Frame     uint32
	Histogram []uint32
	Zones     []ZoneMeans
}

// ControlWrite is one register-ready sensor control write. Frame is the
// frame at which the value must take effect.
type ControlWrite struct {
	Control Control
	Value   uint32
	Frame   uint32
}

// SensorRequest is the batch of sensor writes produced by one call.
type SensorRequest struct {
	RequestedAt uint32 // frame the values were computed at
	Writes      []ControlWrite
}

// Empty reports whether the request carries no writes.
func (r SensorRequest) Empty() bool { return len(r.Writes) == 0 }
