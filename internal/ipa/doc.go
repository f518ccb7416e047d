// Package ipa is the delay-aware control core shared by the image
// processing algorithms.
//
// A session starts with Module.Configure, which resolves the sensor model,
// builds the immutable SessionConfiguration and seeds ActiveState with
// neutral defaults. After that the pipeline drives two calls per frame:
//
//	QueueRequest      frame F is queued; controls due at F take effect,
//	                  algorithms run QueueRequest and Prepare, FrameCount++.
//	ProcessStatistics statistics arrive; algorithms run Process and AGC's
//	                  sensor controls are scheduled at frame + delay.
//
// Algorithms never mutate ActiveState directly. Each hook gets a copy of the
// state and returns its whole sub-record; the module installs it in one
// assignment, so no reader ever sees half of an update.
//
// ActiveState.Sensor holds the values in effect for the most recently
// queued frame. A control computed at frame N with delay D reaches it only
// when frame N+D is queued.
package ipa
