// Package sim drives an ipa.Module against a simulated sensor and ISP: it
// queues requests, latches sensor writes with the sensor's own delays,
// synthesises statistics from a scene and reports what the sensor applied.
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/monitoring"
	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/timeutil"
	"github.com/banshee-data/camctl/internal/tracedb"
)

// referenceExposure is the exposure at which Scene values are defined.
const referenceExposure = 10 * time.Millisecond

// Recorder receives the trace as it is produced. *tracedb.DB implements it.
type Recorder interface {
	StartSession(s tracedb.Session) error
	RecordFrame(f tracedb.Frame) error
	RecordMismatches(sessionID string, mismatches []ipa.Mismatch) error
}

// Config describes one simulated stream.
type Config struct {
	SensorID string
	Mode     sensor.Mode
	Hardware ipa.Hardware

	Frames   uint32
	Interval time.Duration // frame pacing; 0 runs unpaced
	Scene    Scene

	// ExtraDelay is added to every declared delay to model a sensor that
	// latches later than its datasheet says.
	ExtraDelay uint32

	// Controls are application controls keyed by the frame they are
	// queued with.
	Controls map[uint32]ipa.Controls
}

// Result summarises a run.
type Result struct {
	SessionID  string
	Trace      []tracedb.Frame
	Mismatches int
	AwbGains   ipa.ColourGains
}

// FinalLuma is the mean luminance of the last frame, 0 for an empty run.
func (r Result) FinalLuma() float64 {
	if len(r.Trace) == 0 {
		return 0
	}
	return r.Trace[len(r.Trace)-1].MeanLuma
}

// Simulator runs sessions on one module.
type Simulator struct {
	module   *ipa.Module
	registry *sensor.Registry
	clock    timeutil.Clock
	recorder Recorder
}

// New returns a simulator. registry must be the one module resolves
// sensors from; nil means sensor.Default(). clock and recorder may be nil.
func New(module *ipa.Module, registry *sensor.Registry, clock timeutil.Clock, recorder Recorder) *Simulator {
	if registry == nil {
		registry = sensor.Default()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Simulator{module: module, registry: registry, clock: clock, recorder: recorder}
}

// Run configures a session, streams cfg.Frames frames and stops the
// session. On cancellation it returns the trace so far with ctx.Err().
func (s *Simulator) Run(ctx context.Context, cfg Config) (Result, error) {
	scene := cfg.Scene
	if scene == nil {
		scene = Constant(0.05)
	}

	initial, err := s.module.Configure(ipa.ConfigInfo{SensorID: cfg.SensorID, Mode: cfg.Mode, Hardware: cfg.Hardware})
	if err != nil {
		return Result{}, err
	}
	defer s.module.Stop()

	session, _, _ := s.module.Snapshot()
	model, err := s.registry.Create(cfg.SensorID)
	if err != nil {
		return Result{}, err
	}

	declared := session.Sensor.Delays
	sen := &simSensor{delays: sensor.Delays{
		Exposure: declared.Exposure + cfg.ExtraDelay,
		Gain:     declared.Gain + cfg.ExtraDelay,
		VBlank:   declared.VBlank + cfg.ExtraDelay,
		HBlank:   declared.HBlank + cfg.ExtraDelay,
	}}
	sen.program(initial)

	res := Result{SessionID: s.module.SessionID().String(), AwbGains: ipa.UnityGains}
	if s.recorder != nil {
		err := s.recorder.StartSession(tracedb.Session{
			ID:        res.SessionID,
			SensorID:  cfg.SensorID,
			Width:     session.Sensor.Size.X,
			Height:    session.Sensor.Size.Y,
			Delays:    declared,
			StartedAt: s.clock.Now(),
		})
		if err != nil {
			return res, err
		}
	}

	var tick <-chan time.Time
	if cfg.Interval > 0 {
		ticker := s.clock.NewTicker(cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	for frame := uint32(0); frame < cfg.Frames; frame++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, err := s.step(frame, cfg, session, model, sen, scene, &res)
		if err != nil {
			return res, fmt.Errorf("frame %d: %w", frame, err)
		}
		res.Trace = append(res.Trace, rec)
	}

	monitoring.Logf("[sim %s] %d frames, final luma %.3f, %d mismatches",
		res.SessionID[:8], len(res.Trace), res.FinalLuma(), res.Mismatches)
	return res, nil
}

func (s *Simulator) step(frame uint32, cfg Config, session ipa.SessionConfiguration, model sensor.ControlModel,
	sen *simSensor, scene Scene, res *Result) (tracedb.Frame, error) {
	params, err := s.module.QueueRequest(cfg.Controls[frame])
	if err != nil {
		return tracedb.Frame{}, err
	}
	if params.Awb != nil {
		res.AwbGains = params.Awb.Gains
	}

	applied := sen.startFrame(frame)
	gain := model.Gain(applied.GainCode)
	exposure := session.Duration(applied.Exposure)
	luma := scene(frame) * session.Sensor.ModeSensitivity * gain *
		float64(exposure) / float64(referenceExposure)
	luma = math.Min(1, luma)

	mismatches, err := s.module.ConfirmApplied(frame, applied, ipa.AllControls)
	if err != nil {
		return tracedb.Frame{}, err
	}
	res.Mismatches += len(mismatches)

	req, err := s.module.ProcessStatistics(ipa.Statistics{
		Frame:     frame,
		Histogram: histogram(luma, session.Hw.HistogramBins),
		Zones:     zoneMeans(luma, res.AwbGains),
	})
	if err != nil {
		return tracedb.Frame{}, err
	}
	sen.write(req)

	_, state, _ := s.module.Snapshot()
	rec := tracedb.Frame{
		SessionID:         res.SessionID,
		Frame:             frame,
		RequestedExposure: state.Agc.Exposure,
		AppliedExposure:   applied.Exposure,
		RequestedGain:     state.Agc.Gain,
		AppliedGain:       gain,
		GainCode:          applied.GainCode,
		VBlank:            applied.VBlank,
		MeanLuma:          luma,
	}
	if s.recorder != nil {
		if err := s.recorder.RecordFrame(rec); err != nil {
			return rec, err
		}
		if len(mismatches) > 0 {
			if err := s.recorder.RecordMismatches(res.SessionID, mismatches); err != nil {
				return rec, err
			}
		}
	}
	return rec, nil
}
