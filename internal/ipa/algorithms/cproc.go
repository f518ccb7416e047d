package algorithms

import (
	"math"

	"github.com/banshee-data/camctl/internal/ipa"
)

// Cproc converts brightness, contrast and saturation controls to the
// colour processing register format.
type Cproc struct{}

func NewCproc() *Cproc { return &Cproc{} }

func (c *Cproc) Name() string     { return "cproc" }
func (c *Cproc) Owner() ipa.Owner { return ipa.OwnerCproc }

func (c *Cproc) Configure(ipa.SessionConfiguration, ipa.ActiveState) (ipa.Record, error) {
	return nil, nil
}

// brightness: [-1, 1] to signed 8 bit. contrast, saturation: [0, 2) to 1.7
// fixed point.
func brightnessReg(v float64) int8 { return int8(clampRound(v*128, -128, 127)) }
func scaleReg(v float64) uint8     { return uint8(clampRound(v*128, 0, 255)) }

func clampRound(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, math.Round(v)))
}

func (c *Cproc) QueueRequest(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, ctrls ipa.Controls) ipa.Record {
	rec := state.Cproc
	if ctrls.Brightness != nil {
		rec.Brightness = brightnessReg(*ctrls.Brightness)
	}
	if ctrls.Contrast != nil {
		rec.Contrast = scaleReg(*ctrls.Contrast)
	}
	if ctrls.Saturation != nil {
		rec.Saturation = scaleReg(*ctrls.Saturation)
	}
	if rec == state.Cproc {
		return nil
	}
	rec.UpdateParams = true
	return rec
}

// Prepare emits the block on the first frame and after any change.
func (c *Cproc) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	rec := state.Cproc
	if frame > 0 && !rec.UpdateParams {
		return nil
	}
	params.Cproc = &ipa.CprocParams{
		Brightness: rec.Brightness,
		Contrast:   rec.Contrast,
		Saturation: rec.Saturation,
	}
	rec.UpdateParams = false
	return rec
}
