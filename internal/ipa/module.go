package ipa

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/camctl/internal/ctlerr"
	"github.com/banshee-data/camctl/internal/monitoring"
	"github.com/banshee-data/camctl/internal/sensor"
)

// historyDepth is how many queued frames ConfirmApplied can look back.
const historyDepth = 32

// ConfigInfo is what the pipeline hands over at configure time.
type ConfigInfo struct {
	SensorID string
	Mode     sensor.Mode
	Hardware Hardware
}

// Mismatch is a sensor control whose applied value differs from the value
// the module expected for that frame.
type Mismatch struct {
	Frame    uint32
	Control  Control
	Expected uint32
	Reported uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("frame %d %v: expected %d, sensor reported %d", m.Frame, m.Control, m.Expected, m.Reported)
}

type appliedEntry struct {
	frame  uint32
	values SensorValues
	valid  bool
}

// Module runs the algorithms in a fixed order against one session's state.
// All entry points serialise on one mutex, so each pass is atomic with
// respect to other callers.
type Module struct {
	mu         sync.Mutex
	registry   *sensor.Registry
	algorithms []Algorithm
	loaded     Owners

	configured bool
	sessionID  uuid.UUID
	sensorID   string
	model      sensor.ControlModel
	config     SessionConfiguration
	state      ActiveState
	queue      *frameQueue
	applied    [historyDepth]appliedEntry
}

// NewModule returns a module running algs in the given order. A nil
// registry means sensor.Default(). At most one algorithm per owner.
func NewModule(registry *sensor.Registry, algs ...Algorithm) (*Module, error) {
	if registry == nil {
		registry = sensor.Default()
	}
	m := &Module{registry: registry}
	for _, a := range algs {
		if a == nil {
			return nil, ctlerr.Configuration("new module", "", errors.New("nil algorithm"))
		}
		if m.loaded.Has(a.Owner()) {
			return nil, ctlerr.Configuration("new module", a.Name(),
				fmt.Errorf("second algorithm for %v", a.Owner()))
		}
		m.loaded |= OwnersOf(a.Owner())
		m.algorithms = append(m.algorithms, a)
	}
	return m, nil
}

// Algorithms returns the names of the loaded algorithms in run order.
func (m *Module) Algorithms() []string {
	names := make([]string, len(m.algorithms))
	for i, a := range m.algorithms {
		names[i] = a.Name()
	}
	return names
}

// Configure starts a session. It resolves the sensor model, builds the
// session configuration, seeds neutral defaults, lets every algorithm
// configure itself and returns the initial sensor writes, all at frame 0.
// A previous session is discarded.
func (m *Module) Configure(info ConfigInfo) (SensorRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.configured = false

	model, err := m.registry.Create(info.SensorID)
	if err != nil {
		return SensorRequest{}, err
	}
	cfg, err := BuildSessionConfiguration(model, info.Mode, info.Hardware, m.loaded)
	if err != nil {
		return SensorRequest{}, fmt.Errorf("sensor %s: %w", info.SensorID, err)
	}

	state := NeutralState(cfg)
	for _, a := range m.algorithms {
		rec, err := a.Configure(cfg, state)
		if err != nil {
			return SensorRequest{}, ctlerr.Configuration("configure", a.Name(), err)
		}
		if err := checkOwner("configure", a, rec); err != nil {
			return SensorRequest{}, err
		}
		if rec != nil {
			state.install(rec)
		}
	}

	// The initial values are written before streaming and apply from the
	// first frame.
	code := model.GainCode(state.Agc.Gain)
	state.Agc.ExposureFrame, state.Agc.GainFrame, state.Agc.VBlankFrame = 0, 0, 0
	state.Sensor = SensorState{
		Exposure: state.Agc.Exposure,
		Gain:     model.Gain(code),
		GainCode: code,
		VBlank:   state.Agc.VBlank,
		HBlank:   cfg.Sensor.HBlank,
	}
	state.FrameCount = 0

	m.sensorID = info.SensorID
	m.model = model
	m.config = cfg
	m.state = state
	m.queue = newFrameQueue(cfg.Sensor.Delays.Max())
	m.applied = [historyDepth]appliedEntry{}
	m.sessionID = uuid.New()
	m.configured = true

	monitoring.Logf("[ipa %s] configured %s %dx%d, delays %+v, sensitivity %.1f, algorithms %v",
		m.shortID(), info.SensorID, cfg.Sensor.Size.X, cfg.Sensor.Size.Y,
		cfg.Sensor.Delays, cfg.Sensor.ModeSensitivity, m.Algorithms())

	return SensorRequest{
		RequestedAt: 0,
		Writes: []ControlWrite{
			{Control: ControlExposure, Value: state.Sensor.Exposure},
			{Control: ControlGain, Value: state.Sensor.GainCode},
			{Control: ControlVBlank, Value: state.Sensor.VBlank},
			{Control: ControlHBlank, Value: state.Sensor.HBlank},
		},
	}, nil
}

// QueueRequest queues the next frame. Sensor values scheduled for this
// frame take effect first, then every algorithm handles controls and fills
// its parameter block.
func (m *Module) QueueRequest(controls Controls) (*Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured {
		return nil, ctlerr.Consistency("queue request", "", ErrNotConfigured)
	}

	next := m.state
	frame := next.FrameCount
	m.applyDue(&next, frame)

	params := &Params{Frame: frame}
	for _, a := range m.algorithms {
		h, ok := a.(RequestHandler)
		if !ok {
			continue
		}
		if err := install(&next, "queue request", a, h.QueueRequest(frame, m.config, next, controls)); err != nil {
			return nil, err
		}
	}
	for _, a := range m.algorithms {
		p, ok := a.(Preparer)
		if !ok {
			continue
		}
		if err := install(&next, "prepare", a, p.Prepare(frame, m.config, next, params)); err != nil {
			return nil, err
		}
	}

	m.applied[frame%historyDepth] = appliedEntry{frame: frame, values: sensorValues(next.Sensor), valid: true}
	next.FrameCount++
	m.state = next
	return params, nil
}

// ProcessStatistics runs every processor on stats. The current frame is
// the last one queued. Changed AGC controls are validated against their
// delays and scheduled; the returned writes carry their target frames.
func (m *Module) ProcessStatistics(stats Statistics) (SensorRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured {
		return SensorRequest{}, ctlerr.Consistency("process", "", ErrNotConfigured)
	}
	if m.state.FrameCount == 0 || stats.Frame >= m.state.FrameCount {
		return SensorRequest{}, ctlerr.Consistency("process", "",
			fmt.Errorf("%w: frame %d, %d queued", ErrFutureStatistics, stats.Frame, m.state.FrameCount))
	}

	frame := m.state.FrameCount - 1
	next := m.state
	prev := next.Agc
	for _, a := range m.algorithms {
		p, ok := a.(Processor)
		if !ok {
			continue
		}
		if err := install(&next, "process", a, p.Process(frame, m.config, next, stats)); err != nil {
			return SensorRequest{}, err
		}
	}

	writes, err := m.changedControls(frame, prev, next.Agc)
	if err != nil {
		return SensorRequest{}, err
	}
	if err := m.schedule(writes); err != nil {
		return SensorRequest{}, err
	}

	m.state = next
	return SensorRequest{RequestedAt: frame, Writes: writes}, nil
}

// ConfirmApplied compares the sensor values the pipeline reports for frame
// with the values the module believed were in effect. Mismatches are
// logged and returned; the module does not correct for them.
func (m *Module) ConfirmApplied(frame uint32, reported SensorValues, mask ControlMask) ([]Mismatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured {
		return nil, ctlerr.Consistency("confirm applied", "", ErrNotConfigured)
	}
	if frame >= m.state.FrameCount {
		return nil, ctlerr.Consistency("confirm applied", "",
			fmt.Errorf("%w: frame %d, %d queued", ErrUnknownFrame, frame, m.state.FrameCount))
	}
	entry := m.applied[frame%historyDepth]
	if !entry.valid || entry.frame != frame {
		return nil, nil
	}

	var mismatches []Mismatch
	for c := ControlExposure; c < numControls; c++ {
		if !mask.Has(c) {
			continue
		}
		if want, got := entry.values.Get(c), reported.Get(c); want != got {
			mm := Mismatch{Frame: frame, Control: c, Expected: want, Reported: got}
			mismatches = append(mismatches, mm)
			monitoring.Logf("[ipa %s] delay mismatch: %v", m.shortID(), mm)
		}
	}
	return mismatches, nil
}

// Stop ends the session and discards values that have not taken effect.
func (m *Module) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured {
		return
	}
	pending := len(m.queue.pendingContexts())
	m.queue.reset()
	m.configured = false
	monitoring.Logf("[ipa %s] stopped after %d frames, discarded %d pending contexts",
		m.shortID(), m.state.FrameCount, pending)
}

// Snapshot returns copies of the session configuration and active state.
// ok is false when no session is configured.
func (m *Module) Snapshot() (cfg SessionConfiguration, state ActiveState, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, m.state, m.configured
}

// Pending returns the frame contexts scheduled but not yet in effect,
// oldest first.
func (m *Module) Pending() []FrameContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queue == nil {
		return nil
	}
	return m.queue.pendingContexts()
}

// SessionID identifies the current session; it changes on every Configure.
func (m *Module) SessionID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// SensorID returns the identifier of the configured sensor.
func (m *Module) SensorID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensorID
}

func (m *Module) shortID() string {
	return m.sessionID.String()[:8]
}

// applyDue moves every control due at or before frame into state.Sensor.
func (m *Module) applyDue(state *ActiveState, frame uint32) {
	for _, fc := range m.queue.due(frame) {
		for c := ControlExposure; c < numControls; c++ {
			if !fc.Set.Has(c) {
				continue
			}
			v := fc.Controls.Get(c)
			switch c {
			case ControlExposure:
				state.Sensor.Exposure = v
			case ControlGain:
				state.Sensor.GainCode = v
				state.Sensor.Gain = m.model.Gain(v)
			case ControlVBlank:
				state.Sensor.VBlank = v
			case ControlHBlank:
				state.Sensor.HBlank = v
			}
		}
	}
}

// changedControls turns the difference between two AGC records into sensor
// writes, checking each tag against the declared delay.
func (m *Module) changedControls(frame uint32, prev, next AgcState) ([]ControlWrite, error) {
	var writes []ControlWrite
	add := func(c Control, value, tag uint32) error {
		if want := m.config.EffectiveFrame(c, frame); tag != want {
			return ctlerr.Consistency("schedule", c.String(),
				fmt.Errorf("%w: tagged %d, want %d", ErrTagMismatch, tag, want))
		}
		writes = append(writes, ControlWrite{Control: c, Value: value, Frame: tag})
		return nil
	}

	if next.Exposure != prev.Exposure {
		if err := add(ControlExposure, next.Exposure, next.ExposureFrame); err != nil {
			return nil, err
		}
	}
	if code := m.model.GainCode(next.Gain); code != m.model.GainCode(prev.Gain) {
		if err := add(ControlGain, code, next.GainFrame); err != nil {
			return nil, err
		}
	}
	if next.VBlank != prev.VBlank {
		if err := add(ControlVBlank, next.VBlank, next.VBlankFrame); err != nil {
			return nil, err
		}
	}
	return writes, nil
}

// schedule stores writes in the frame-context queue. Nothing is stored
// unless every write fits.
func (m *Module) schedule(writes []ControlWrite) error {
	trial := &frameQueue{slots: append([]FrameContext(nil), m.queue.slots...)}
	for _, w := range writes {
		if err := trial.put(w.Frame, w.Control, w.Value); err != nil {
			return ctlerr.Consistency("schedule", w.Control.String(), err)
		}
	}
	m.queue = trial
	return nil
}

func install(state *ActiveState, op string, a Algorithm, rec Record) error {
	if rec == nil {
		return nil
	}
	if err := checkOwner(op, a, rec); err != nil {
		return err
	}
	state.install(rec)
	return nil
}

func checkOwner(op string, a Algorithm, rec Record) error {
	if rec == nil || rec.owner() == a.Owner() {
		return nil
	}
	return ctlerr.Consistency(op, a.Name(),
		fmt.Errorf("%w: %v record from %v algorithm", ErrForeignRecord, rec.owner(), a.Owner()))
}

func sensorValues(s SensorState) SensorValues {
	return SensorValues{Exposure: s.Exposure, GainCode: s.GainCode, VBlank: s.VBlank, HBlank: s.HBlank}
}
