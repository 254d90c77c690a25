package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/emotion"
)

const maxReasonSize = 2 * 1024

// AppendObservation stores an analysis observation. Reasons are truncated
// to 2KB.
func (db *DB) AppendObservation(ctx context.Context, o emotion.Observation) error {
	reason := o.Reason
	if len(reason) > maxReasonSize {
		reason = strings.ToValidUTF8(reason[:maxReasonSize], "")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO emotion_history (user_id, emotion, intensity, reason, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.UserID, string(o.Emotion), clampInt(o.Intensity, 1, 10), reason, clampFloat(o.Confidence, 0, 1), o.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("add observation: %w", err)
	}
	return nil
}

// Observations returns the user's most recent observations, oldest first.
// A non-positive limit returns all of them.
func (db *DB) Observations(ctx context.Context, userID string, limit int) ([]emotion.Observation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT user_id, emotion, intensity, reason, confidence, created_at
		FROM emotion_history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	defer rows.Close()

	var obs []emotion.Observation
	for rows.Next() {
		var o emotion.Observation
		var label string
		var created int64
		if err := rows.Scan(&o.UserID, &label, &o.Intensity, &o.Reason, &o.Confidence, &created); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Emotion = emotion.Label(label)
		o.Timestamp = time.UnixMilli(created)
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	reverse(obs)
	return obs, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
