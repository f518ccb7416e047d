package algorithms

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/camctl/internal/ipa"
)

// AwbOptions tunes the white balance loop.
type AwbOptions struct {
	Speed   float64
	MinGain float64
	MaxGain float64
}

// Zones darker or brighter than this carry no colour information.
const (
	minZoneGreen = 0.02
	maxZoneLevel = 0.95
)

// Blue/red ratio of a grey patch against correlated colour temperature.
var (
	cctRatios = []float64{0.40, 0.55, 0.70, 0.85, 1.00, 1.25, 1.55}
	cctKelvin = []float64{2300, 2800, 3400, 4200, 5000, 6500, 8000}

	cctCurve = mustFitCCT(cctRatios, cctKelvin)
)

// mustFitCCT fits the ratio to temperature curve and panics on a malformed
// table.
func mustFitCCT(ratios, kelvin []float64) *interp.PiecewiseLinear {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ratios, kelvin); err != nil {
		panic(fmt.Sprintf("awb: colour temperature table: %v", err))
	}
	return &pl
}

// Awb is a grey-world white balance over the AWB zone means.
type Awb struct {
	opts AwbOptions
}

// NewAwb returns an AWB with opts, filling zero fields with defaults.
func NewAwb(opts AwbOptions) *Awb {
	if opts.Speed <= 0 || opts.Speed > 1 {
		opts.Speed = 0.2
	}
	if opts.MinGain <= 0 {
		opts.MinGain = 0.25
	}
	if opts.MaxGain <= opts.MinGain {
		opts.MaxGain = 8
	}
	return &Awb{opts: opts}
}

func (a *Awb) Name() string     { return "awb" }
func (a *Awb) Owner() ipa.Owner { return ipa.OwnerAwb }

// Configure switches to automatic mode when the AWB block is in use.
func (a *Awb) Configure(cfg ipa.SessionConfiguration, state ipa.ActiveState) (ipa.Record, error) {
	rec := state.Awb
	rec.AutoEnabled = cfg.Awb.Enabled
	return rec, nil
}

// QueueRequest handles AWB mode and, in manual mode, colour gains and
// temperature.
func (a *Awb) QueueRequest(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, c ipa.Controls) ipa.Record {
	rec := state.Awb
	if c.AwbEnable != nil {
		rec.AutoEnabled = *c.AwbEnable
	}
	if !rec.AutoEnabled {
		if c.ColourGains != nil {
			rec.Gains = ipa.ColourGains{
				Red:   a.clamp(c.ColourGains.Red),
				Green: 1,
				Blue:  a.clamp(c.ColourGains.Blue),
			}
		}
		if c.ColourTemperature != nil {
			rec.TemperatureK = *c.ColourTemperature
		}
	}
	if rec == state.Awb {
		return nil
	}
	return rec
}

// Prepare programs the gains every frame while the block is enabled.
func (a *Awb) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	if !cfg.Awb.Enabled {
		return nil
	}
	params.Awb = &ipa.AwbParams{
		Gains:         state.Awb.Gains,
		MeasureWindow: cfg.Awb.MeasureWindow,
		Enabled:       true,
	}
	return nil
}

// Process moves the gains toward grey world.
func (a *Awb) Process(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, stats ipa.Statistics) ipa.Record {
	rec := state.Awb
	if !rec.AutoEnabled || !cfg.Awb.Enabled {
		return nil
	}

	var rs, gs, bs []float64
	for _, z := range stats.Zones {
		if z.Green < minZoneGreen || floats.Max([]float64{z.Red, z.Green, z.Blue}) > maxZoneLevel {
			continue
		}
		rs = append(rs, z.Red)
		gs = append(gs, z.Green)
		bs = append(bs, z.Blue)
	}
	if len(gs) == 0 {
		return nil
	}
	meanR, meanG, meanB := stat.Mean(rs, nil), stat.Mean(gs, nil), stat.Mean(bs, nil)
	if meanR <= 0 || meanB <= 0 {
		return nil
	}

	// Zone means are measured after the current gains.
	rawR := meanR / state.Awb.Gains.Red
	rawB := meanB / state.Awb.Gains.Blue
	rawG := meanG / state.Awb.Gains.Green

	targetR := a.clamp(rawG / rawR)
	targetB := a.clamp(rawG / rawB)
	rec.Gains = ipa.ColourGains{
		Red:   rec.Gains.Red + a.opts.Speed*(targetR-rec.Gains.Red),
		Green: 1,
		Blue:  rec.Gains.Blue + a.opts.Speed*(targetB-rec.Gains.Blue),
	}
	rec.TemperatureK = math.Round(cctCurve.Predict(rawB / rawR))
	return rec
}

func (a *Awb) clamp(g float64) float64 {
	return math.Max(a.opts.MinGain, math.Min(a.opts.MaxGain, g))
}
