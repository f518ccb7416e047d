package ipa

// Algorithm is one control algorithm in the per-frame pass. Every hook
// receives the session configuration and a copy of ActiveState, and returns
// the whole sub-record it owns, or nil for no change.
type Algorithm interface {
	Name() string
	Owner() Owner

	// Configure runs once per session, after neutral defaults are seeded.
	Configure(cfg SessionConfiguration, state ActiveState) (Record, error)
}

// RequestHandler consumes application controls for the frame being queued.
type RequestHandler interface {
	QueueRequest(frame uint32, cfg SessionConfiguration, state ActiveState, controls Controls) Record
}

// Preparer fills its block of the ISP parameter buffer for the frame being
// queued.
type Preparer interface {
	Prepare(frame uint32, cfg SessionConfiguration, state ActiveState, params *Params) Record
}

// Processor consumes statistics. frame is the current frame, the last one
// queued, which may be newer than stats.Frame.
type Processor interface {
	Process(frame uint32, cfg SessionConfiguration, state ActiveState, stats Statistics) Record
}
