package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/heartline/internal/transcript"
)

// AppendTurn logs a completed chat turn.
func (db *DB) AppendTurn(ctx context.Context, t transcript.Turn) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_history (user_id, user_message, bot_reply, created_at)
		VALUES (?, ?, ?, ?)
	`, t.UserID, t.UserMessage, t.BotReply, t.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("add turn: %w", err)
	}
	return nil
}

// RecentTurns returns the user's last limit turns, oldest first. A
// non-positive limit returns the whole history.
func (db *DB) RecentTurns(ctx context.Context, userID string, limit int) ([]transcript.Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, user_message, bot_reply, created_at
		FROM chat_history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	var turns []transcript.Turn
	for rows.Next() {
		var t transcript.Turn
		var created int64
		if err := rows.Scan(&t.UserID, &t.UserMessage, &t.BotReply, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Timestamp = time.UnixMilli(created)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	reverse(turns)
	return turns, nil
}
