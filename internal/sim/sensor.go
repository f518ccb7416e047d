package sim

import (
	"math"

	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/sensor"
)

type pendingWrite struct {
	frame   uint32
	control ipa.Control
	value   uint32
}

// simSensor latches control writes after its own delays, which may differ
// from the ones the model declares.
type simSensor struct {
	delays  sensor.Delays
	applied ipa.SensorValues
	pending []pendingWrite
}

func delayOf(d sensor.Delays, c ipa.Control) uint32 {
	switch c {
	case ipa.ControlExposure:
		return d.Exposure
	case ipa.ControlGain:
		return d.Gain
	case ipa.ControlVBlank:
		return d.VBlank
	default:
		return d.HBlank
	}
}

// program applies writes made before streaming.
func (s *simSensor) program(req ipa.SensorRequest) {
	for _, w := range req.Writes {
		s.applied.Set(w.Control, w.Value)
	}
}

// write latches req; each value takes effect delay frames after the frame
// it was computed at.
func (s *simSensor) write(req ipa.SensorRequest) {
	for _, w := range req.Writes {
		s.pending = append(s.pending, pendingWrite{
			frame:   req.RequestedAt + delayOf(s.delays, w.Control),
			control: w.Control,
			value:   w.Value,
		})
	}
}

// startFrame applies everything due by frame and returns the values the
// frame is exposed with. A write due at a frame already exposing lands on
// the next one.
func (s *simSensor) startFrame(frame uint32) ipa.SensorValues {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.frame <= frame {
			s.applied.Set(p.control, p.value)
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
	return s.applied
}

// Zone colour cast of the simulated illuminant before white balance.
const (
	castRed  = 0.8
	castBlue = 0.6
	zones    = 16
	samples  = 1000
)

// histogram spreads samples over the two bins around luma so the weighted
// mean of the bin centres is luma. Values past either end pile up in the
// end bin.
func histogram(luma float64, bins int) []uint32 {
	h := make([]uint32, bins)
	u := luma*float64(bins) - 0.5
	i0 := int(math.Floor(u))
	switch {
	case i0 < 0:
		h[0] = samples
	case i0+1 >= bins:
		h[bins-1] = samples
	default:
		frac := u - float64(i0)
		lo := uint32(math.Round(samples * (1 - frac)))
		h[i0] = lo
		h[i0+1] = samples - lo
	}
	return h
}

// zoneMeans returns uniform grey zones seen through the illuminant cast and
// the currently programmed white balance gains.
func zoneMeans(luma float64, gains ipa.ColourGains) []ipa.ZoneMeans {
	z := ipa.ZoneMeans{
		Red:   math.Min(1, luma*castRed*gains.Red),
		Green: math.Min(1, luma*gains.Green),
		Blue:  math.Min(1, luma*castBlue*gains.Blue),
	}
	out := make([]ipa.ZoneMeans, zones)
	for i := range out {
		out[i] = z
	}
	return out
}
