// Package sensor owns the per-sensor control abstraction.
//
// Responsibilities: the ControlModel capability (gain encoding, control
// delays, mode sensitivity), the capture Mode descriptor handed over by
// mode negotiation, and the process-wide Registry that maps a sensor
// identifier to a model factory.
//
// Concrete models live in sensor/models and register themselves from init.
// Callers import that package for its side effect and then talk to models
// only through ControlModel.
//
// Dependency rule: sensor depends on ctlerr only. Nothing here holds
// per-frame state.
package sensor
