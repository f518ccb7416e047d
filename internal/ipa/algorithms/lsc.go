package algorithms

import "github.com/banshee-data/camctl/internal/ipa"

// Lsc programs a fixed lens shading table once per session. It owns no
// ActiveState sub-record.
type Lsc struct {
	table []uint16
}

func NewLsc(table []uint16) *Lsc {
	return &Lsc{table: append([]uint16(nil), table...)}
}

func (l *Lsc) Name() string     { return "lsc" }
func (l *Lsc) Owner() ipa.Owner { return ipa.OwnerLsc }

func (l *Lsc) Configure(ipa.SessionConfiguration, ipa.ActiveState) (ipa.Record, error) {
	return nil, nil
}

func (l *Lsc) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	if frame != 0 || !cfg.Lsc.Enabled {
		return nil
	}
	params.Lsc = &ipa.LscParams{Enabled: true, Table: append([]uint16(nil), l.table...)}
	return nil
}
