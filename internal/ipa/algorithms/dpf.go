package algorithms

import "github.com/banshee-data/camctl/internal/ipa"

// Dpf switches the denoise pre-filter with the noise reduction mode.
type Dpf struct {
	initial bool
}

func NewDpf(enabled bool) *Dpf { return &Dpf{initial: enabled} }

func (d *Dpf) Name() string     { return "dpf" }
func (d *Dpf) Owner() ipa.Owner { return ipa.OwnerDpf }

func (d *Dpf) Configure(cfg ipa.SessionConfiguration, state ipa.ActiveState) (ipa.Record, error) {
	return ipa.DpfState{Denoise: d.initial}, nil
}

func (d *Dpf) QueueRequest(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, c ipa.Controls) ipa.Record {
	if c.NoiseReductionMode == nil {
		return nil
	}
	denoise := *c.NoiseReductionMode != ipa.NoiseReductionOff
	if denoise == state.Dpf.Denoise {
		return nil
	}
	return ipa.DpfState{Denoise: denoise, UpdateParams: true}
}

func (d *Dpf) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	if frame > 0 && !state.Dpf.UpdateParams {
		return nil
	}
	params.Dpf = &ipa.DpfParams{Enabled: state.Dpf.Denoise}
	return ipa.DpfState{Denoise: state.Dpf.Denoise}
}
