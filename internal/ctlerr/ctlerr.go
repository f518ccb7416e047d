// Package ctlerr defines the two error classes of the control core.
//
// A ConfigurationError is fatal to session start: an unresolvable sensor
// identifier, a malformed capture mode, a duplicate registry entry. A
// ConsistencyError is a programming-contract violation inside a running
// session: reading state before it was seeded, writing another owner's
// sub-record, statistics for a frame that was never queued. Neither is
// retried.
package ctlerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("configuration error")

	// ErrConsistency matches every *ConsistencyError via errors.Is.
	ErrConsistency = errors.New("consistency error")
)

// ConfigurationError reports a failure detected while starting up or
// configuring a session.
type ConfigurationError struct {
	Op      string // operation, e.g. "register", "create", "configure"
	Subject string // sensor id, algorithm name or field
	Err     error  // underlying cause
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is reports class membership so callers can test errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ConsistencyError reports a violated single-writer or sequencing contract.
type ConsistencyError struct {
	Op      string
	Subject string
	Err     error
}

func (e *ConsistencyError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

// Configuration wraps err as a ConfigurationError.
func Configuration(op, subject string, err error) error {
	return &ConfigurationError{Op: op, Subject: subject, Err: err}
}

// Consistency wraps err as a ConsistencyError.
func Consistency(op, subject string, err error) error {
	return &ConsistencyError{Op: op, Subject: subject, Err: err}
}
