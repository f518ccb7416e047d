package sensor

import "fmt"

// ControlModel describes one sensor family's control characteristics.
// Implementations are immutable after construction and stateless across
// frames.
type ControlModel interface {
	// GainCode maps an analogue gain multiplier to the sensor's native
	// register encoding. Monotonic, not necessarily linear.
	GainCode(gain float64) uint32

	// Gain is the exact or best-effort inverse of GainCode.
	Gain(code uint32) float64

	// Delays returns the number of frames between writing each control and
	// the value taking photographic effect.
	Delays() Delays

	// ModeSensitivity returns the multiplicative sensitivity of mode
	// relative to the full-resolution readout. Always >= 1.0.
	ModeSensitivity(mode Mode) float64
}

// Limits is implemented by models that know their own gain range and the
// minimum gap between frame length and integration time.
type Limits interface {
	// GainRange returns the analogue gain range the sensor accepts.
	GainRange() (min, max float64)

	// FrameIntegrationDiff is the smallest difference between the frame
	// length and the integration time, in lines.
	FrameIntegrationDiff() uint32
}

// Delays are sensor datasheet facts, constant for a model and independent of
// the capture mode. Off-by-one here corrupts exposure timing for a session.
type Delays struct {
	Exposure uint32 `json:"exposure" yaml:"exposure"`
	Gain     uint32 `json:"gain" yaml:"gain"`
	VBlank   uint32 `json:"vblank" yaml:"vblank"`
	HBlank   uint32 `json:"hblank" yaml:"hblank"`
}

// MaxDelay is the largest control delay a model may declare, in frames.
const MaxDelay = 16

// Validate rejects delays above MaxDelay.
func (d Delays) Validate() error {
	if m := d.Max(); m > MaxDelay {
		return fmt.Errorf("%w: %d frames exceeds %d", ErrInvalidDelays, m, MaxDelay)
	}
	return nil
}

// Max returns the largest of the four delays.
func (d Delays) Max() uint32 {
	m := d.Exposure
	for _, v := range []uint32{d.Gain, d.VBlank, d.HBlank} {
		if v > m {
			m = v
		}
	}
	return m
}

// GainRangeOf returns the model's gain range, or ok=false when the model
// does not implement Limits.
func GainRangeOf(m ControlModel) (min, max float64, ok bool) {
	l, ok := m.(Limits)
	if !ok {
		return 0, 0, false
	}
	min, max = l.GainRange()
	return min, max, true
}

// FrameIntegrationDiffOf returns the model's frame/integration gap in lines,
// zero when the model does not implement Limits.
func FrameIntegrationDiffOf(m ControlModel) uint32 {
	if l, ok := m.(Limits); ok {
		return l.FrameIntegrationDiff()
	}
	return 0
}

// FrameLength returns the frame length in lines needed to integrate
// exposure lines in mode, clamped to the mode's frame length range.
func FrameLength(exposure, diff uint32, mode Mode) uint32 {
	fl := exposure + diff
	if fl < mode.MinFrameLength {
		fl = mode.MinFrameLength
	}
	if mode.MaxFrameLength > 0 && fl > mode.MaxFrameLength {
		fl = mode.MaxFrameLength
	}
	return fl
}

// VBlank returns the vertical blanking, in lines, that realises the frame
// length required by exposure.
func VBlank(exposure, diff uint32, mode Mode) uint32 {
	fl := FrameLength(exposure, diff, mode)
	if fl <= mode.Height {
		return 0
	}
	return fl - mode.Height
}
