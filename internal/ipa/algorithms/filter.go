package algorithms

import "github.com/banshee-data/camctl/internal/ipa"

// Filter maps sharpness and noise reduction mode onto the filter block.
type Filter struct {
	sharpness uint8
	denoise   uint8
}

// NewFilter returns a filter starting at sharpness (0..10) and denoise
// level (0..3).
func NewFilter(sharpness float64, denoise int) *Filter {
	return &Filter{
		sharpness: uint8(clampRound(sharpness, 0, 10)),
		denoise:   uint8(clampRound(float64(denoise), 0, 3)),
	}
}

func (f *Filter) Name() string     { return "filter" }
func (f *Filter) Owner() ipa.Owner { return ipa.OwnerFilter }

func (f *Filter) Configure(cfg ipa.SessionConfiguration, state ipa.ActiveState) (ipa.Record, error) {
	return ipa.FilterState{Denoise: f.denoise, Sharpness: f.sharpness}, nil
}

func (f *Filter) QueueRequest(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, c ipa.Controls) ipa.Record {
	rec := state.Filter
	if c.Sharpness != nil {
		rec.Sharpness = uint8(clampRound(*c.Sharpness, 0, 10))
	}
	if c.NoiseReductionMode != nil {
		switch *c.NoiseReductionMode {
		case ipa.NoiseReductionOff:
			rec.Denoise = 0
		case ipa.NoiseReductionMinimal:
			rec.Denoise = 1
		case ipa.NoiseReductionHighQuality, ipa.NoiseReductionFast:
			rec.Denoise = 3
		}
	}
	if rec == state.Filter {
		return nil
	}
	rec.UpdateParams = true
	return rec
}

func (f *Filter) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	rec := state.Filter
	if frame > 0 && !rec.UpdateParams {
		return nil
	}
	params.Filter = &ipa.FilterParams{Denoise: rec.Denoise, Sharpness: rec.Sharpness}
	rec.UpdateParams = false
	return rec
}
