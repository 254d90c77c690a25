package store

import (
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "user_affection: per-user affection ledger",
		SQL: `
CREATE TABLE user_affection (
    user_id            TEXT PRIMARY KEY,
    score              INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN -100 AND 100),
    conversation_count INTEGER NOT NULL DEFAULT 0 CHECK (conversation_count >= 0),
    first_met          INTEGER NOT NULL,
    last_interaction   INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "user_emotion: current emotion per user",
		SQL: `
CREATE TABLE user_emotion (
    user_id    TEXT PRIMARY KEY,
    emotion    TEXT NOT NULL CHECK (emotion IN ('bashful', 'joy', 'sadness', 'anger', 'surprise', 'longing')),
    intensity  REAL NOT NULL CHECK (intensity BETWEEN 0 AND 1),
    updated_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "emotion_history: append-only analysis observations",
		SQL: `
CREATE TABLE emotion_history (
    id         INTEGER PRIMARY KEY,
    user_id    TEXT NOT NULL,
    emotion    TEXT NOT NULL,
    intensity  INTEGER NOT NULL CHECK (intensity BETWEEN 1 AND 10),
    reason     TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL CHECK (confidence BETWEEN 0 AND 1),
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_emotion_history_user ON emotion_history(user_id, created_at);
`,
	},
	{
		Version:     4,
		Description: "chat_history: completed chat turns",
		SQL: `
CREATE TABLE chat_history (
    id           INTEGER PRIMARY KEY,
    user_id      TEXT NOT NULL,
    user_message TEXT NOT NULL,
    bot_reply    TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_chat_history_user ON chat_history(user_id, created_at);
`,
	},
	{
		Version:     5,
		Description: "conversation_sessions: start of the current conversation",
		SQL: `
CREATE TABLE conversation_sessions (
    user_id       TEXT PRIMARY KEY,
    started_at    INTEGER NOT NULL,
    last_activity INTEGER NOT NULL
);
`,
	},
	{
		Version:     6,
		Description: "event_history: delivered special events",
		SQL: `
CREATE TABLE event_history (
    id         INTEGER PRIMARY KEY,
    user_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    event_key  TEXT NOT NULL,
    payload    TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    UNIQUE (user_id, kind, event_key)
);

CREATE INDEX idx_event_history_user ON event_history(user_id, created_at);
`,
	},
}

// userTables lists every table keyed by user_id, for ClearUser.
var userTables = []string{
	"user_affection",
	"user_emotion",
	"emotion_history",
	"chat_history",
	"conversation_sessions",
	"event_history",
}

const schemaVersionsDDL = `CREATE TABLE IF NOT EXISTS schema_versions (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`

// migrate applies every migration newer than the recorded schema version,
// each in its own transaction.
func (db *DB) migrate() error {
	if _, err := db.Exec(schemaVersionsDDL); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}
	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) apply(m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.Exec(`INSERT INTO schema_versions (version, name, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion reports the highest applied migration, 0 on a fresh database.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`).Scan(&version)
	return version, err
}
