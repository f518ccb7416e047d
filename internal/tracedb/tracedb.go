// Package tracedb stores control-loop traces in SQLite: one row per
// session, one per frame, and one per delay mismatch reported by the
// pipeline.
package tracedb

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/sensor"
)

type DB struct {
	*sql.DB
}

// Session is the header row for one configured session.
type Session struct {
	ID        string
	SensorID  string
	Width     int
	Height    int
	Delays    sensor.Delays
	StartedAt time.Time
}

// Frame is one frame of a trace. Requested values are what the control
// loop asked for at that frame; applied values are what the sensor used.
type Frame struct {
	SessionID         string
	Frame             uint32
	RequestedExposure uint32
	AppliedExposure   uint32
	RequestedGain     float64
	AppliedGain       float64
	GainCode          uint32
	VBlank            uint32
	MeanLuma          float64
}

// Open opens or creates the trace database at path and brings its schema
// up to date.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// StartSession records a session header.
func (db *DB) StartSession(s Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (
			session_id, sensor_id, width, height,
			exposure_delay, gain_delay, vblank_delay, hblank_delay, started_unix_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SensorID, s.Width, s.Height,
		s.Delays.Exposure, s.Delays.Gain, s.Delays.VBlank, s.Delays.HBlank,
		s.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// RecordFrame stores one frame row.
func (db *DB) RecordFrame(f Frame) error {
	if err := insertFrame(db.DB, f); err != nil {
		return fmt.Errorf("failed to insert frame %d: %w", f.Frame, err)
	}
	return nil
}

// RecordFrames stores frames in one transaction.
func (db *DB) RecordFrames(frames []Frame) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := insertFrame(tx, f); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert frame %d: %w", f.Frame, err)
		}
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertFrame(e execer, f Frame) error {
	_, err := e.Exec(`
		INSERT INTO frames (
			session_id, frame, requested_exposure, applied_exposure,
			requested_gain, applied_gain, gain_code, vblank, mean_luma
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.SessionID, f.Frame, f.RequestedExposure, f.AppliedExposure,
		f.RequestedGain, f.AppliedGain, f.GainCode, f.VBlank, f.MeanLuma,
	)
	return err
}

// RecordMismatches stores delay mismatches for a session.
func (db *DB) RecordMismatches(sessionID string, mismatches []ipa.Mismatch) error {
	for _, m := range mismatches {
		_, err := db.Exec(`
			INSERT INTO mismatches (session_id, frame, control, expected, reported)
			VALUES (?, ?, ?, ?, ?)`,
			sessionID, m.Frame, m.Control.String(), m.Expected, m.Reported,
		)
		if err != nil {
			return fmt.Errorf("failed to insert mismatch at frame %d: %w", m.Frame, err)
		}
	}
	return nil
}

// Sessions returns all session headers, oldest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT session_id, sensor_id, width, height,
			exposure_delay, gain_delay, vblank_delay, hblank_delay, started_unix_ns
		FROM sessions ORDER BY started_unix_ns, session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var started int64
		if err := rows.Scan(&s.ID, &s.SensorID, &s.Width, &s.Height,
			&s.Delays.Exposure, &s.Delays.Gain, &s.Delays.VBlank, &s.Delays.HBlank, &started); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Frames returns a session's frames in frame order.
func (db *DB) Frames(sessionID string) ([]Frame, error) {
	rows, err := db.Query(`
		SELECT session_id, frame, requested_exposure, applied_exposure,
			requested_gain, applied_gain, gain_code, vblank, mean_luma
		FROM frames WHERE session_id = ? ORDER BY frame`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		if err := rows.Scan(&f.SessionID, &f.Frame, &f.RequestedExposure, &f.AppliedExposure,
			&f.RequestedGain, &f.AppliedGain, &f.GainCode, &f.VBlank, &f.MeanLuma); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// MismatchCount returns how many mismatches were recorded for a session.
func (db *DB) MismatchCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM mismatches WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
