package store

import (
	"context"
	"fmt"
	"time"
)

// Event is a delivered special event. Key scopes deduplication: the same
// (user, kind, key) is recorded once.
type Event struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordEvent stores an event unless one with the same user, kind and key
// exists. It reports whether the event was new.
func (db *DB) RecordEvent(ctx context.Context, e Event) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO event_history (user_id, kind, event_key, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kind, event_key) DO NOTHING
	`, e.UserID, e.Kind, e.Key, e.Payload, e.CreatedAt.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	return n > 0, nil
}

// Events returns the user's most recent events, newest first.
func (db *DB) Events(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, kind, event_key, payload, created_at
		FROM event_history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created int64
		if err := rows.Scan(&e.UserID, &e.Kind, &e.Key, &e.Payload, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		events = append(events, e)
	}
	return events, rows.Err()
}
