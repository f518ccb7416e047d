package ipa

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/units"
)

// HwRevision identifies the ISP hardware generation.
type HwRevision int

const (
	HwRevisionUnknown HwRevision = iota
	HwRevisionV10
	HwRevisionV11
	HwRevisionV12
	HwRevisionV13
)

var hwRevisionNames = map[HwRevision]string{
	HwRevisionV10: "v10",
	HwRevisionV11: "v11",
	HwRevisionV12: "v12",
	HwRevisionV13: "v13",
}

func (r HwRevision) String() string {
	if s, ok := hwRevisionNames[r]; ok {
		return s
	}
	return fmt.Sprintf("HwRevision(%d)", int(r))
}

// ParseHwRevision maps "v10".."v13" to a revision.
func ParseHwRevision(s string) (HwRevision, error) {
	for r, name := range hwRevisionNames {
		if name == s {
			return r, nil
		}
	}
	return HwRevisionUnknown, fmt.Errorf("unknown ISP revision %q", s)
}

// HistogramBins is the number of luminance histogram bins the revision
// produces: 16 up to v11, 32 from v12.
func (r HwRevision) HistogramBins() int {
	switch r {
	case HwRevisionV10, HwRevisionV11:
		return 16
	case HwRevisionV12, HwRevisionV13:
		return 32
	default:
		return 0
	}
}

// Hardware describes the ISP instance the session runs on.
type Hardware struct {
	Revision HwRevision
	// Optional blocks; some integrations ship without them.
	WhiteBalanceGains bool
	LensShading       bool
}

// Owner identifies the algorithm that owns a sub-record.
type Owner uint8

const (
	OwnerAgc Owner = iota
	OwnerAwb
	OwnerCproc
	OwnerDpf
	OwnerFilter
	OwnerLsc
	numOwners
)

var ownerNames = [numOwners]string{"agc", "awb", "cproc", "dpf", "filter", "lsc"}

func (o Owner) String() string {
	if o < numOwners {
		return ownerNames[o]
	}
	return fmt.Sprintf("Owner(%d)", int(o))
}

// Owners is a set of owners, typically the algorithms loaded for a session.
type Owners uint8

// OwnersOf returns the set containing os.
func OwnersOf(owners ...Owner) Owners {
	var s Owners
	for _, o := range owners {
		s |= 1 << o
	}
	return s
}

// Has reports whether o is in the set.
func (s Owners) Has(o Owner) bool { return s&(1<<o) != 0 }

// Control is a sensor control with its own delay.
type Control uint8

const (
	ControlExposure Control = iota
	ControlGain
	ControlVBlank
	ControlHBlank
	numControls
)

var controlNames = [numControls]string{"exposure", "analogue_gain", "vblank", "hblank"}

func (c Control) String() string {
	if c < numControls {
		return controlNames[c]
	}
	return fmt.Sprintf("Control(%d)", int(c))
}

// AgcConfig is the AGC part of the session configuration.
type AgcConfig struct {
	MinShutterSpeed time.Duration
	MaxShutterSpeed time.Duration
	MinAnalogueGain float64
	MaxAnalogueGain float64
	MeasureWindow   image.Rectangle
}

// AwbConfig is the AWB part of the session configuration. Enabled means the
// AWB block is programmed at all, independent of auto/manual mode.
type AwbConfig struct {
	MeasureWindow image.Rectangle
	Enabled       bool
}

// LscConfig is the lens shading part of the session configuration.
type LscConfig struct {
	Enabled bool
}

// SensorConfig holds the sensor facts for the negotiated mode.
type SensorConfig struct {
	LineDuration         time.Duration
	Size                 image.Point
	Delays               sensor.Delays
	ModeSensitivity      float64
	FrameIntegrationDiff uint32
	MinFrameLength       uint32
	MaxFrameLength       uint32
	HBlank               uint32
}

// HwConfig holds the ISP hardware facts.
type HwConfig struct {
	Revision      HwRevision
	HistogramBins int
}

// SessionConfiguration is fixed for the lifetime of a session. It is passed
// by value; nothing may modify it after BuildSessionConfiguration.
type SessionConfiguration struct {
	Agc    AgcConfig
	Awb    AwbConfig
	Lsc    LscConfig
	Sensor SensorConfig
	Hw     HwConfig
}

// Delay returns the declared delay of control in frames.
func (c SessionConfiguration) Delay(control Control) uint32 {
	d := c.Sensor.Delays
	switch control {
	case ControlExposure:
		return d.Exposure
	case ControlGain:
		return d.Gain
	case ControlVBlank:
		return d.VBlank
	case ControlHBlank:
		return d.HBlank
	default:
		return 0
	}
}

// EffectiveFrame is the frame at which a value for control computed at
// frame takes photographic effect.
func (c SessionConfiguration) EffectiveFrame(control Control, frame uint32) uint32 {
	return frame + c.Delay(control)
}

// Lines converts an exposure time to lines for this mode.
func (c SessionConfiguration) Lines(d time.Duration) uint32 {
	return units.DurationToLines(d, c.Sensor.LineDuration)
}

// Duration converts an exposure in lines to time for this mode.
func (c SessionConfiguration) Duration(lines uint32) time.Duration {
	return units.LinesToDuration(lines, c.Sensor.LineDuration)
}

// VBlankFor returns the vertical blanking that realises exposure lines.
func (c SessionConfiguration) VBlankFor(exposure uint32) uint32 {
	return sensor.VBlank(exposure, c.Sensor.FrameIntegrationDiff, c.mode())
}

// ClampExposure limits exposure lines to the session shutter range.
func (c SessionConfiguration) ClampExposure(lines uint32) uint32 {
	lo, hi := c.Lines(c.Agc.MinShutterSpeed), c.Lines(c.Agc.MaxShutterSpeed)
	if lo == 0 {
		lo = 1
	}
	if lines < lo {
		return lo
	}
	if lines > hi {
		return hi
	}
	return lines
}

// ClampGain limits gain to the session analogue gain range.
func (c SessionConfiguration) ClampGain(gain float64) float64 {
	return units.ClampGain(gain, c.Agc.MinAnalogueGain, c.Agc.MaxAnalogueGain)
}

func (c SessionConfiguration) mode() sensor.Mode {
	return sensor.Mode{
		Width:          uint32(c.Sensor.Size.X),
		Height:         uint32(c.Sensor.Size.Y),
		MinFrameLength: c.Sensor.MinFrameLength,
		MaxFrameLength: c.Sensor.MaxFrameLength,
	}
}

// BuildSessionConfiguration derives the session configuration from the
// resolved model, the negotiated mode, the ISP hardware and the set of
// loaded algorithms. It has no side effects.
func BuildSessionConfiguration(model sensor.ControlModel, mode sensor.Mode, hw Hardware, loaded Owners) (SessionConfiguration, error) {
	const op = "build session"

	if model == nil {
		return SessionConfiguration{}, ctlerr.Configuration(op, "", errors.New("nil sensor model"))
	}
	if err := mode.Validate(); err != nil {
		return SessionConfiguration{}, ctlerr.Configuration(op, "mode", err)
	}
	delays := model.Delays()
	if err := delays.Validate(); err != nil {
		return SessionConfiguration{}, ctlerr.Configuration(op, "delays", err)
	}
	bins := hw.Revision.HistogramBins()
	if bins == 0 {
		return SessionConfiguration{}, ctlerr.Configuration(op, "hw", fmt.Errorf("unsupported ISP revision %v", hw.Revision))
	}

	minGain, maxGain := mode.MinAnalogueGain, mode.MaxAnalogueGain
	if lo, hi, ok := sensor.GainRangeOf(model); ok {
		minGain = math.Max(minGain, lo)
		maxGain = math.Min(maxGain, hi)
	}
	if minGain > maxGain {
		return SessionConfiguration{}, ctlerr.Configuration(op, "analogue_gain",
			fmt.Errorf("mode range [%g, %g] does not overlap sensor range", mode.MinAnalogueGain, mode.MaxAnalogueGain))
	}

	diff := sensor.FrameIntegrationDiffOf(model)
	maxShutter := mode.MaxShutter
	if mode.MaxFrameLength > diff {
		if limit := units.LinesToDuration(mode.MaxFrameLength-diff, mode.LineLength); limit < maxShutter {
			maxShutter = limit
		}
	}
	if maxShutter < mode.MinShutter {
		return SessionConfiguration{}, ctlerr.Configuration(op, "shutter",
			fmt.Errorf("max frame length leaves no room above %v", mode.MinShutter))
	}

	w, h := int(mode.Width), int(mode.Height)
	agcWindow := image.Rect(w/8, h/8, w/8+3*w/4, h/8+3*h/4)
	if agcWindow.Empty() {
		return SessionConfiguration{}, ctlerr.Configuration(op, "measure_window",
			fmt.Errorf("output %dx%d too small for a metering window", w, h))
	}

	sensitivity := model.ModeSensitivity(mode)
	if sensitivity < 1 || math.IsNaN(sensitivity) {
		return SessionConfiguration{}, ctlerr.Configuration(op, "sensitivity",
			fmt.Errorf("mode sensitivity %g below 1.0", sensitivity))
	}

	return SessionConfiguration{
		Agc: AgcConfig{
			MinShutterSpeed: mode.MinShutter,
			MaxShutterSpeed: maxShutter,
			MinAnalogueGain: minGain,
			MaxAnalogueGain: maxGain,
			MeasureWindow:   agcWindow,
		},
		Awb: AwbConfig{
			MeasureWindow: image.Rect(0, 0, w, h),
			Enabled:       loaded.Has(OwnerAwb) && hw.WhiteBalanceGains,
		},
		Lsc: LscConfig{
			Enabled: loaded.Has(OwnerLsc) && hw.LensShading,
		},
		Sensor: SensorConfig{
			LineDuration:         mode.LineLength,
			Size:                 image.Pt(w, h),
			Delays:               delays,
			ModeSensitivity:      sensitivity,
			FrameIntegrationDiff: diff,
			MinFrameLength:       mode.MinFrameLength,
			MaxFrameLength:       mode.MaxFrameLength,
			HBlank:               mode.HBlank,
		},
		Hw: HwConfig{
			Revision:      hw.Revision,
			HistogramBins: bins,
		},
	}, nil
}
