package store

import (
	"context"
	"fmt"
	"time"
)

// TouchSession records activity for the user's conversation and returns
// when the current conversation started. A conversation idle for longer
// than idle ends, and the next touch starts a new one at now.
func (db *DB) TouchSession(ctx context.Context, userID string, now time.Time, idle time.Duration) (time.Time, error) {
	var started int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO conversation_sessions (user_id, started_at, last_activity)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			started_at = CASE
				WHEN excluded.last_activity - conversation_sessions.last_activity > ? THEN excluded.started_at
				ELSE conversation_sessions.started_at
			END,
			last_activity = excluded.last_activity
		RETURNING started_at
	`, userID, now.UnixMilli(), now.UnixMilli(), idle.Milliseconds()).Scan(&started)
	if err != nil {
		return time.Time{}, fmt.Errorf("touch session: %w", err)
	}
	return time.UnixMilli(started), nil
}
