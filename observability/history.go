// CLAUDE:SUMMARY Action history: records load/reload/download outcomes in SQLite without ever failing the action, and queries recent entries.
// Package observability keeps the action history of bulkvis sessions.
//
// Every user action (load, reload, download) is written to the
// action_events table. Recording never propagates an error: a failing
// history store is logged through slog and the action proceeds.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/bulkvis/dbopen"
	"github.com/hazyhaar/bulkvis/idgen"
)

// Action names.
const (
	ActionLoad     = "load"
	ActionReload   = "reload"
	ActionDownload = "download"
)

// ActionEvent is one recorded user action.
type ActionEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	RemoteAddr   string    `json:"remote_addr,omitempty"`
	Action       string    `json:"action"`
	Location     string    `json:"location,omitempty"`
	Position     string    `json:"position,omitempty"`
	Format       string    `json:"format,omitempty"`
	Samples      int       `json:"samples"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Filter narrows Recent.
type Filter struct {
	SessionID string
	Action    string
	Limit     int // default 50, max 1000
}

// History writes and reads action events.
type History struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
	owned  bool
}

// Option configures a History.
type Option func(*History)

// WithIDGenerator sets the event id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(h *History) { h.newID = gen }
}

// WithLogger sets the logger used for swallowed write errors.
func WithLogger(l *slog.Logger) Option {
	return func(h *History) { h.logger = l }
}

// New wraps an existing database. The schema must already be applied.
func New(db *sql.DB, opts ...Option) *History {
	h := &History{
		db:     db,
		newID:  idgen.Prefixed("act_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Open opens (creating if needed) the history database at path.
func Open(path string, opts ...Option) (*History, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	h := New(db, opts...)
	h.owned = true
	return h, nil
}

// Record stores e. Errors are logged, never returned. A nil History is a no-op.
func (h *History) Record(ctx context.Context, e ActionEvent) {
	if h == nil {
		return
	}
	if e.ID == "" {
		e.ID = h.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := h.db.ExecContext(ctx, `INSERT INTO action_events
		(event_id, timestamp, session_id, request_id, remote_addr, action, location, position,
		 format, samples, duration_ms, success, error_kind, error_message)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Timestamp.UnixMilli(), e.SessionID, e.RequestID, e.RemoteAddr, e.Action, e.Location, e.Position,
		e.Format, e.Samples, e.DurationMs, e.Success, e.ErrorKind, e.ErrorMessage)
	if err != nil {
		h.logger.Error("observability: record action failed", "error", err, "action", e.Action)
	}
}

// Recent returns the newest events first.
func (h *History) Recent(ctx context.Context, f Filter) ([]ActionEvent, error) {
	q := `SELECT event_id, timestamp, session_id, request_id, remote_addr, action, location, position,
		format, samples, duration_ms, success, error_kind, error_message
		FROM action_events WHERE 1=1`
	var args []any
	if f.SessionID != "" {
		q += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.Action != "" {
		q += " AND action = ?"
		args = append(args, f.Action)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	q += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query action events: %w", err)
	}
	defer rows.Close()

	var out []ActionEvent
	for rows.Next() {
		var e ActionEvent
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.SessionID, &e.RequestID, &e.RemoteAddr, &e.Action, &e.Location, &e.Position,
			&e.Format, &e.Samples, &e.DurationMs, &e.Success, &e.ErrorKind, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan action event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than retentionDays.
func (h *History) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := h.db.ExecContext(ctx, "DELETE FROM action_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup action events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database if Open created it.
func (h *History) Close() error {
	if h == nil || !h.owned {
		return nil
	}
	return h.db.Close()
}
