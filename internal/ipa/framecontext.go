package ipa

import (
	"fmt"
	"sort"
)

// ControlMask is a set of Controls.
type ControlMask uint8

// MaskOf returns the mask containing cs.
func MaskOf(cs ...Control) ControlMask {
	var m ControlMask
	for _, c := range cs {
		m |= 1 << c
	}
	return m
}

// AllControls contains every sensor control.
var AllControls = MaskOf(ControlExposure, ControlGain, ControlVBlank, ControlHBlank)

// Has reports whether c is in the mask.
func (m ControlMask) Has(c Control) bool { return m&(1<<c) != 0 }

// SensorValues are register-level sensor control values.
type SensorValues struct {
	Exposure uint32
	GainCode uint32
	VBlank   uint32
	HBlank   uint32
}

// Get returns the value of c.
func (v SensorValues) Get(c Control) uint32 {
	switch c {
	case ControlExposure:
		return v.Exposure
	case ControlGain:
		return v.GainCode
	case ControlVBlank:
		return v.VBlank
	case ControlHBlank:
		return v.HBlank
	default:
		return 0
	}
}

// Set stores value as c.
func (v *SensorValues) Set(c Control, value uint32) {
	switch c {
	case ControlExposure:
		v.Exposure = value
	case ControlGain:
		v.GainCode = value
	case ControlVBlank:
		v.VBlank = value
	case ControlHBlank:
		v.HBlank = value
	}
}

// FrameContext holds the controls that take effect at Frame.
type FrameContext struct {
	Frame    uint32
	Controls SensorValues
	Set      ControlMask
}

func (fc FrameContext) pending() bool { return fc.Set != 0 }

// frameQueue is a ring of frame contexts indexed by frame modulo its size.
// With size maxDelay+1 every frame from the current one to current+maxDelay
// has its own slot.
type frameQueue struct {
	slots []FrameContext
}

func newFrameQueue(maxDelay uint32) *frameQueue {
	return &frameQueue{slots: make([]FrameContext, maxDelay+1)}
}

func (q *frameQueue) size() int { return len(q.slots) }

// put merges value for c into the context for frame.
func (q *frameQueue) put(frame uint32, c Control, value uint32) error {
	slot := &q.slots[frame%uint32(len(q.slots))]
	if slot.pending() && slot.Frame != frame {
		return fmt.Errorf("%w: slot for frame %d holds frame %d", ErrSlotBusy, frame, slot.Frame)
	}
	slot.Frame = frame
	slot.Controls.Set(c, value)
	slot.Set |= MaskOf(c)
	return nil
}

// due removes and returns every pending context at or before frame, oldest
// first.
func (q *frameQueue) due(frame uint32) []FrameContext {
	var out []FrameContext
	for i := range q.slots {
		if q.slots[i].pending() && q.slots[i].Frame <= frame {
			out = append(out, q.slots[i])
			q.slots[i] = FrameContext{}
		}
	}
	sortContexts(out)
	return out
}

// pendingContexts returns copies of all contexts not yet applied, oldest
// first.
func (q *frameQueue) pendingContexts() []FrameContext {
	var out []FrameContext
	for _, fc := range q.slots {
		if fc.pending() {
			out = append(out, fc)
		}
	}
	sortContexts(out)
	return out
}

func sortContexts(fcs []FrameContext) {
	sort.Slice(fcs, func(i, j int) bool { return fcs[i].Frame < fcs[j].Frame })
}

func (q *frameQueue) reset() {
	for i := range q.slots {
		q.slots[i] = FrameContext{}
	}
}
