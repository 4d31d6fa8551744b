// CLAUDE:SUMMARY DDL of the action_events history table and its indexes.
package observability

import "database/sql"

// Schema contains the DDL of the history database.
const Schema = `
CREATE TABLE IF NOT EXISTS action_events (
    event_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',
    request_id TEXT NOT NULL DEFAULT '',
    remote_addr TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    position TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL DEFAULT '',
    samples INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    success INTEGER NOT NULL DEFAULT 1,
    error_kind TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_action_events_time ON action_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_action_events_session ON action_events(session_id, timestamp DESC);
`

// Init applies Schema to db.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
