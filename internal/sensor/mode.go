package sensor

import (
	"fmt"
	"time"
)

// Mode is a capture mode descriptor as negotiated with the sensor driver.
type Mode struct {
	Width    uint32 // output width in pixels
	Height   uint32 // output height in lines
	BitDepth uint32

	// Binning and scaling relative to the full pixel array.
	BinX   uint32
	BinY   uint32
	ScaleX float64
	ScaleY float64
	CropX  uint32
	CropY  uint32

	LineLength     time.Duration // duration of one line including HBLANK
	HBlank         uint32        // horizontal blanking in pixels
	MinFrameLength uint32        // lines
	MaxFrameLength uint32        // lines

	MinShutter      time.Duration
	MaxShutter      time.Duration
	MinAnalogueGain float64
	MaxAnalogueGain float64
}

// Validate checks that the descriptor is usable for metering and scheduling.
func (m Mode) Validate() error {
	if m.Width == 0 || m.Height == 0 {
		return fmt.Errorf("%w: zero output size %dx%d", ErrInvalidMode, m.Width, m.Height)
	}
	if m.BinX == 0 || m.BinY == 0 {
		return fmt.Errorf("%w: binning must be at least 1, got %dx%d", ErrInvalidMode, m.BinX, m.BinY)
	}
	if m.ScaleX < 1 || m.ScaleY < 1 {
		return fmt.Errorf("%w: scale must be at least 1, got %gx%g", ErrInvalidMode, m.ScaleX, m.ScaleY)
	}
	if m.LineLength <= 0 {
		return fmt.Errorf("%w: line length must be positive, got %v", ErrInvalidMode, m.LineLength)
	}
	if m.MaxFrameLength != 0 && m.MinFrameLength > m.MaxFrameLength {
		return fmt.Errorf("%w: frame length range [%d, %d] inverted", ErrInvalidMode, m.MinFrameLength, m.MaxFrameLength)
	}
	if m.MinShutter <= 0 || m.MaxShutter < m.MinShutter {
		return fmt.Errorf("%w: shutter range [%v, %v] invalid", ErrInvalidMode, m.MinShutter, m.MaxShutter)
	}
	if m.MinAnalogueGain <= 0 || m.MaxAnalogueGain < m.MinAnalogueGain {
		return fmt.Errorf("%w: analogue gain range [%g, %g] invalid", ErrInvalidMode, m.MinAnalogueGain, m.MaxAnalogueGain)
	}
	return nil
}

// SensitivityStep is one step of a binning/scaling sensitivity staircase.
type SensitivityStep struct {
	MinBinX   uint32  `json:"min_bin_x" yaml:"min_bin_x"`
	MinScaleX float64 `json:"min_scale_x" yaml:"min_scale_x"`
	Factor    float64 `json:"factor" yaml:"factor"`
}

// Staircase is an ordered sensitivity policy. The first step whose
// thresholds are both met (inclusive) gives the factor; otherwise 1.0.
type Staircase []SensitivityStep

// Lookup returns the sensitivity factor for mode.
func (s Staircase) Lookup(mode Mode) float64 {
	for _, step := range s {
		if mode.BinX >= step.MinBinX && mode.ScaleX >= step.MinScaleX {
			if step.Factor < 1 {
				return 1.0
			}
			return step.Factor
		}
	}
	return 1.0
}
