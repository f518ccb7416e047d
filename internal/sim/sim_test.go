package sim

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/ipa/algorithms"
	"github.com/banshee-data/camctl/internal/monitoring"
	"github.com/banshee-data/camctl/internal/sensor"
	"github.com/banshee-data/camctl/internal/testutil"
	"github.com/banshee-data/camctl/internal/timeutil"
	"github.com/banshee-data/camctl/internal/tracedb"
)

func init() {
	monitoring.SetLogger(nil)
}

const targetLuma = 0.16

type memRecorder struct {
	sessions   []tracedb.Session
	frames     []tracedb.Frame
	mismatches []ipa.Mismatch
}

func (m *memRecorder) StartSession(s tracedb.Session) error {
	m.sessions = append(m.sessions, s)
	return nil
}

func (m *memRecorder) RecordFrame(f tracedb.Frame) error {
	m.frames = append(m.frames, f)
	return nil
}

func (m *memRecorder) RecordMismatches(_ string, mm []ipa.Mismatch) error {
	m.mismatches = append(m.mismatches, mm...)
	return nil
}

func newSimulator(t *testing.T, clock timeutil.Clock, rec Recorder) *Simulator {
	t.Helper()
	model := testutil.NewFakeModel(sensor.Delays{Exposure: 2, Gain: 1, VBlank: 2, HBlank: 2})
	reg := testutil.Registry(t, "fake", model)
	algs, err := algorithms.FromTuning(nil)
	require.NoError(t, err)
	m, err := ipa.NewModule(reg, algs...)
	require.NoError(t, err)
	return New(m, reg, clock, rec)
}

func baseConfig(frames uint32) Config {
	return Config{
		SensorID: "fake",
		Mode:     testutil.Mode1080p(),
		Hardware: ipa.Hardware{Revision: ipa.HwRevisionV12, WhiteBalanceGains: true},
		Frames:   frames,
	}
}

func TestRunConverges(t *testing.T) {
	rec := &memRecorder{}
	s := newSimulator(t, nil, rec)

	cfg := baseConfig(120)
	cfg.Scene = Constant(0.05)
	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, res.Trace, 120)
	assert.InDelta(t, targetLuma, res.FinalLuma(), 0.01)
	assert.Zero(t, res.Mismatches)
	assert.Empty(t, rec.mismatches)
	assert.Len(t, rec.frames, 120)
	require.Len(t, rec.sessions, 1)
	assert.Equal(t, res.SessionID, rec.sessions[0].ID)
	assert.Equal(t, sensor.Delays{Exposure: 2, Gain: 1, VBlank: 2, HBlank: 2}, rec.sessions[0].Delays)

	// Grey world undoes the simulated illuminant cast.
	assert.InDelta(t, 1/castRed, res.AwbGains.Red, 0.02)
	assert.InDelta(t, 1/castBlue, res.AwbGains.Blue, 0.02)

	// The first frames run on the initial exposure: 10ms at unity gain.
	assert.Equal(t, uint32(666), res.Trace[0].AppliedExposure)
	assert.InDelta(t, 0.05*666*15e-6/0.010, res.Trace[0].MeanLuma, 1e-9)
}

func TestRunFollowsSceneStep(t *testing.T) {
	s := newSimulator(t, nil, nil)

	cfg := baseConfig(200)
	cfg.Scene = Step(0.05, 0.4, 100)
	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.InDelta(t, targetLuma, res.Trace[99].MeanLuma, 0.01)
	assert.Greater(t, res.Trace[100].MeanLuma, 0.5)
	assert.InDelta(t, targetLuma, res.FinalLuma(), 0.01)
}

func TestRunDetectsLateSensor(t *testing.T) {
	rec := &memRecorder{}
	s := newSimulator(t, nil, rec)

	cfg := baseConfig(40)
	cfg.ExtraDelay = 1
	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Positive(t, res.Mismatches)
	assert.Len(t, rec.mismatches, res.Mismatches)
	for _, mm := range rec.mismatches {
		assert.NotEqual(t, mm.Expected, mm.Reported)
	}
}

func TestRunManualExposure(t *testing.T) {
	s := newSimulator(t, nil, nil)

	off := false
	exposure := 20 * time.Millisecond
	gain := 2.0
	cfg := baseConfig(30)
	cfg.Controls = map[uint32]ipa.Controls{
		10: {AeEnable: &off, ExposureTime: &exposure, AnalogueGain: &gain},
	}
	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	last := res.Trace[len(res.Trace)-1]
	assert.Equal(t, uint32(1333), last.AppliedExposure)
	assert.Equal(t, 2.0, last.AppliedGain)
	assert.Equal(t, uint32(1333), res.Trace[12].AppliedExposure)
	assert.NotEqual(t, uint32(1333), res.Trace[11].AppliedExposure)
}

func TestRunUnknownSensor(t *testing.T) {
	s := newSimulator(t, nil, nil)
	cfg := baseConfig(10)
	cfg.SensorID = "imx999"

	_, err := s.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ctlerr.ErrConfiguration))
}

func TestRunCancelled(t *testing.T) {
	s := newSimulator(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, baseConfig(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Trace)
}

func TestRunPacedByClock(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	s := newSimulator(t, clock, nil)

	cfg := baseConfig(5)
	cfg.Interval = 33 * time.Millisecond

	done := make(chan Result)
	go func() {
		res, err := s.Run(context.Background(), cfg)
		assert.NoError(t, err)
		done <- res
	}()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-done:
			assert.Len(t, res.Trace, 5)
			return
		case <-deadline:
			t.Fatal("simulation did not finish")
		default:
			clock.Advance(cfg.Interval)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestRunRecordsToTraceDB(t *testing.T) {
	db, err := tracedb.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer db.Close()

	s := newSimulator(t, nil, db)
	cfg := baseConfig(20)
	cfg.ExtraDelay = 1
	res, err := s.Run(context.Background(), cfg)
	require.NoError(t, err)

	frames, err := db.Frames(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.Trace, frames)

	n, err := db.MismatchCount(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.Mismatches, n)
}

func TestHistogramMean(t *testing.T) {
	for _, luma := range []float64{0.05, 0.16, 0.5, 0.9} {
		h := histogram(luma, 32)
		var sum, total float64
		for i, c := range h {
			sum += (float64(i) + 0.5) / 32 * float64(c)
			total += float64(c)
		}
		assert.Equal(t, float64(samples), total)
		assert.InDelta(t, luma, sum/total, 1e-3, "luma %g", luma)
	}

	assert.Equal(t, uint32(samples), histogram(0.001, 16)[0])
	assert.Equal(t, uint32(samples), histogram(1, 16)[15])
}

func TestParseScene(t *testing.T) {
	s, err := ParseScene("0.05")
	require.NoError(t, err)
	assert.Equal(t, 0.05, s(0))
	assert.Equal(t, 0.05, s(1000))

	s, err = ParseScene("0.05:0.4@60")
	require.NoError(t, err)
	assert.Equal(t, 0.05, s(59))
	assert.Equal(t, 0.4, s(60))

	for _, bad := range []string{"", "dark", "-0.1", "0.05:0.4", "0.05:x@3", "0.05:0.4@-1"} {
		_, err := ParseScene(bad)
		assert.Error(t, err, bad)
	}
}
