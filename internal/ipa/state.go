package ipa

import "time"

// Record is a whole sub-record of ActiveState as published by its owner.
// Only the types in this file implement it.
type Record interface {
	owner() Owner
}

// AgcState is the AGC sub-record. Exposure, Gain and VBlank are the values
// last requested; the frame tags say when each takes effect.
type AgcState struct {
	Exposure    uint32 // lines
	Gain        float64
	VBlank      uint32 // lines
	AutoEnabled bool

	ExposureFrame uint32
	GainFrame     uint32
	VBlankFrame   uint32

	// Manual targets used while AutoEnabled is false.
	ManualExposure uint32
	ManualGain     float64
}

// ColourGains are per-channel white balance multipliers.
type ColourGains struct {
	Red   float64
	Green float64
	Blue  float64
}

// UnityGains are the neutral white balance gains.
var UnityGains = ColourGains{Red: 1, Green: 1, Blue: 1}

// AwbState is the AWB sub-record.
type AwbState struct {
	Gains        ColourGains
	TemperatureK float64
	AutoEnabled  bool
}

// CprocState is the colour processing sub-record in register units:
// brightness is signed, contrast and saturation are 1.7 fixed point.
type CprocState struct {
	Brightness   int8
	Contrast     uint8
	Saturation   uint8
	UpdateParams bool
}

// DpfState is the denoise pre-filter sub-record.
type DpfState struct {
	Denoise      bool
	UpdateParams bool
}

// FilterState is the denoise/sharpen filter sub-record.
type FilterState struct {
	Denoise      uint8
	Sharpness    uint8
	UpdateParams bool
}

// SensorState holds the sensor values in effect for the most recently
// queued frame. Only the module writes it.
type SensorState struct {
	Exposure uint32 // lines
	Gain     float64
	GainCode uint32
	VBlank   uint32
	HBlank   uint32
}

// ActiveState is the per-session mutable state shared by all algorithms.
type ActiveState struct {
	Agc    AgcState
	Awb    AwbState
	Cproc  CprocState
	Dpf    DpfState
	Filter FilterState
	Sensor SensorState

	FrameCount uint32
}

func (AgcState) owner() Owner    { return OwnerAgc }
func (AwbState) owner() Owner    { return OwnerAwb }
func (CprocState) owner() Owner  { return OwnerCproc }
func (DpfState) owner() Owner    { return OwnerDpf }
func (FilterState) owner() Owner { return OwnerFilter }

// Neutral defaults.
const (
	DefaultExposureTime      = 10 * time.Millisecond
	DefaultColourTemperature = 5000
	UnityContrast            = 128
	UnitySaturation          = 128
)

// NeutralState returns ActiveState with every sub-record at its neutral
// default for cfg: AGC at the initial sensor values with auto on, AWB at
// unity with auto off, unity colour processing, denoise and sharpening off.
func NeutralState(cfg SessionConfiguration) ActiveState {
	exposure := cfg.ClampExposure(cfg.Lines(DefaultExposureTime))
	gain := cfg.Agc.MinAnalogueGain
	vblank := cfg.VBlankFor(exposure)

	return ActiveState{
		Agc: AgcState{
			Exposure:       exposure,
			Gain:           gain,
			VBlank:         vblank,
			AutoEnabled:    true,
			ManualExposure: exposure,
			ManualGain:     gain,
		},
		Awb: AwbState{
			Gains:        UnityGains,
			TemperatureK: DefaultColourTemperature,
		},
		Cproc: CprocState{
			Contrast:   UnityContrast,
			Saturation: UnitySaturation,
		},
		Sensor: SensorState{
			Exposure: exposure,
			Gain:     gain,
			VBlank:   vblank,
			HBlank:   cfg.Sensor.HBlank,
		},
	}
}

// install replaces the sub-record rec owns.
func (s *ActiveState) install(rec Record) {
	switch r := rec.(type) {
	case AgcState:
		s.Agc = r
	case AwbState:
		s.Awb = r
	case CprocState:
		s.Cproc = r
	case DpfState:
		s.Dpf = r
	case FilterState:
		s.Filter = r
	}
}
