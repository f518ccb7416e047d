package ipa

import "errors"

var (
	// ErrNotConfigured is returned by per-frame calls before Configure or
	// after Stop.
	ErrNotConfigured = errors.New("session not configured")

	// ErrForeignRecord is returned when an algorithm publishes a sub-record
	// it does not own.
	ErrForeignRecord = errors.New("sub-record written by non-owner")

	// ErrTagMismatch is returned when a scheduled sensor control is tagged
	// with a frame other than current frame + delay.
	ErrTagMismatch = errors.New("effective-frame tag does not match control delay")

	// ErrFutureStatistics is returned for statistics of a frame that was
	// never queued.
	ErrFutureStatistics = errors.New("statistics for a frame not yet queued")

	// ErrUnknownFrame is returned when applied-value metadata refers to a
	// frame that was never queued.
	ErrUnknownFrame = errors.New("metadata for a frame not yet queued")

	// ErrSlotBusy is returned when a frame-context slot still holds values
	// for a different frame that have not taken effect.
	ErrSlotBusy = errors.New("frame context slot still pending")
)
