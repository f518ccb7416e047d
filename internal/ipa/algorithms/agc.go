package algorithms

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/units"
)

// AgcOptions tunes the exposure loop.
type AgcOptions struct {
	TargetLuminance float64       // mean luminance to converge to, 0..1
	Speed           float64       // fraction of the correction applied per frame
	InitialExposure time.Duration // for a sensitivity 1.0 mode
	MaxExposure     time.Duration // 0 means the session maximum
}

const (
	maxAgcStep        = 8.0 // largest single-frame exposure ratio
	highlightQuantile = 0.98
	highlightLimit    = 0.95
)

// Agc meters the luminance histogram and drives exposure and analogue
// gain, shutter first.
type Agc struct {
	opts AgcOptions
}

// NewAgc returns an AGC with opts, filling zero fields with defaults.
func NewAgc(opts AgcOptions) *Agc {
	if opts.TargetLuminance <= 0 || opts.TargetLuminance >= 1 {
		opts.TargetLuminance = 0.16
	}
	if opts.Speed <= 0 || opts.Speed > 1 {
		opts.Speed = 0.2
	}
	if opts.InitialExposure <= 0 {
		opts.InitialExposure = ipa.DefaultExposureTime
	}
	return &Agc{opts: opts}
}

func (a *Agc) Name() string     { return "agc" }
func (a *Agc) Owner() ipa.Owner { return ipa.OwnerAgc }

// Configure picks the initial exposure. A more sensitive mode starts with
// proportionally less exposure.
func (a *Agc) Configure(cfg ipa.SessionConfiguration, state ipa.ActiveState) (ipa.Record, error) {
	rec := state.Agc
	initial := time.Duration(float64(a.opts.InitialExposure) / cfg.Sensor.ModeSensitivity)
	rec.Exposure = a.clampExposure(cfg, cfg.Lines(initial))
	rec.Gain = cfg.Agc.MinAnalogueGain
	rec.VBlank = cfg.VBlankFor(rec.Exposure)
	rec.AutoEnabled = true
	rec.ManualExposure = rec.Exposure
	rec.ManualGain = rec.Gain
	return rec, nil
}

// QueueRequest records AE mode and manual exposure/gain. Manual values are
// applied from Process so they are tagged like automatic ones.
func (a *Agc) QueueRequest(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, c ipa.Controls) ipa.Record {
	rec := state.Agc
	if c.AeEnable != nil {
		rec.AutoEnabled = *c.AeEnable
	}
	if c.ExposureTime != nil {
		rec.ManualExposure = a.clampExposure(cfg, cfg.Lines(*c.ExposureTime))
	}
	if c.AnalogueGain != nil {
		rec.ManualGain = cfg.ClampGain(*c.AnalogueGain)
	}
	if rec == state.Agc {
		return nil
	}
	return rec
}

// Prepare programs the histogram block once per session.
func (a *Agc) Prepare(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, params *ipa.Params) ipa.Record {
	if frame == 0 {
		params.Agc = &ipa.AgcParams{
			MeasureWindow: cfg.Agc.MeasureWindow,
			HistogramBins: cfg.Hw.HistogramBins,
		}
	}
	return nil
}

// Process computes the next exposure from the values in effect
// (state.Sensor), never from its own pending request.
func (a *Agc) Process(frame uint32, cfg ipa.SessionConfiguration, state ipa.ActiveState, stats ipa.Statistics) ipa.Record {
	rec := state.Agc

	var exposure uint32
	var gain float64
	if rec.AutoEnabled {
		mean, highlight, ok := meter(stats.Histogram)
		if !ok {
			return nil
		}
		factor := a.correction(mean, highlight)
		current := units.TotalExposure(state.Sensor.Exposure, state.Sensor.Gain)
		exposure, gain = a.split(cfg, current*factor)
	} else {
		exposure, gain = rec.ManualExposure, rec.ManualGain
	}

	// Unchanged values keep the tag of the write that scheduled them.
	if exposure != rec.Exposure {
		rec.Exposure = exposure
		rec.ExposureFrame = cfg.EffectiveFrame(ipa.ControlExposure, frame)
	}
	if gain != rec.Gain {
		rec.Gain = gain
		rec.GainFrame = cfg.EffectiveFrame(ipa.ControlGain, frame)
	}
	if vblank := cfg.VBlankFor(exposure); vblank != rec.VBlank {
		rec.VBlank = vblank
		rec.VBlankFrame = cfg.EffectiveFrame(ipa.ControlVBlank, frame)
	}
	return rec
}

// correction returns the damped exposure ratio that moves mean toward the
// target, limited when highlights are already clipping.
func (a *Agc) correction(mean, highlight float64) float64 {
	target := a.opts.TargetLuminance
	ratio := maxAgcStep
	if mean > 0 {
		ratio = math.Min(maxAgcStep, math.Max(1/maxAgcStep, target/mean))
	}
	if highlight >= highlightLimit && ratio > 1 {
		ratio = 1
	}
	return 1 + a.opts.Speed*(ratio-1)
}

// split divides a total exposure (lines x gain) into shutter and gain,
// using shutter up to its limit before adding gain.
func (a *Agc) split(cfg ipa.SessionConfiguration, total float64) (uint32, float64) {
	minGain := cfg.Agc.MinAnalogueGain
	maxLines := a.clampExposure(cfg, math.MaxUint32)

	want := total / minGain
	var lines uint32
	if want >= float64(maxLines) {
		lines = maxLines
	} else {
		lines = a.clampExposure(cfg, uint32(math.Max(want, 0)))
	}
	gain := cfg.ClampGain(total / float64(lines))
	return lines, gain
}

func (a *Agc) clampExposure(cfg ipa.SessionConfiguration, lines uint32) uint32 {
	if a.opts.MaxExposure > 0 {
		if limit := cfg.Lines(a.opts.MaxExposure); limit > 0 && lines > limit {
			lines = limit
		}
	}
	return cfg.ClampExposure(lines)
}

// meter returns the histogram's mean luminance and its 98th percentile, both
// normalised to [0, 1].
func meter(hist []uint32) (mean, highlight float64, ok bool) {
	n := len(hist)
	if n == 0 {
		return 0, 0, false
	}
	xs := make([]float64, n)
	weights := make([]float64, n)
	var total float64
	for i, count := range hist {
		xs[i] = (float64(i) + 0.5) / float64(n)
		weights[i] = float64(count)
		total += weights[i]
	}
	if total == 0 {
		return 0, 0, false
	}
	mean = stat.Mean(xs, weights)
	highlight = stat.Quantile(highlightQuantile, stat.Empirical, xs, weights)
	return mean, highlight, true
}
