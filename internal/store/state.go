package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
)

// Affection returns the user's affection record, creating the initial one
// (score 0, first met and last interaction at now) for new users.
func (db *DB) Affection(ctx context.Context, userID string, now time.Time) (*affection.State, error) {
	ms := now.UnixMilli()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO user_affection (user_id, score, conversation_count, first_met, last_interaction)
		VALUES (?, 0, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, ms, ms); err != nil {
		return nil, fmt.Errorf("create affection: %w", err)
	}

	var s affection.State
	var firstMet, last int64
	err := db.QueryRowContext(ctx, `
		SELECT user_id, score, conversation_count, first_met, last_interaction
		FROM user_affection WHERE user_id = ?
	`, userID).Scan(&s.UserID, &s.Score, &s.ConversationCount, &firstMet, &last)
	if err != nil {
		return nil, fmt.Errorf("get affection: %w", err)
	}
	s.FirstMet = time.UnixMilli(firstMet)
	s.LastInteraction = time.UnixMilli(last)
	return &s, nil
}

// SaveAffection writes score, count and last interaction in one statement.
func (db *DB) SaveAffection(ctx context.Context, s *affection.State) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_affection (user_id, score, conversation_count, first_met, last_interaction)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			score = excluded.score,
			conversation_count = excluded.conversation_count,
			last_interaction = excluded.last_interaction
	`, s.UserID, affection.Clamp(s.Score), s.ConversationCount, s.FirstMet.UnixMilli(), s.LastInteraction.UnixMilli())
	if err != nil {
		return fmt.Errorf("save affection: %w", err)
	}
	return nil
}

// Emotion returns the user's emotion, creating the default for new users.
func (db *DB) Emotion(ctx context.Context, userID string, now time.Time) (*emotion.State, error) {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO user_emotion (user_id, emotion, intensity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, string(emotion.Default), emotion.DefaultIntensity, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("create emotion: %w", err)
	}

	var s emotion.State
	var label string
	var updated int64
	err := db.QueryRowContext(ctx, `
		SELECT user_id, emotion, intensity, updated_at FROM user_emotion WHERE user_id = ?
	`, userID).Scan(&s.UserID, &label, &s.Intensity, &updated)
	if err != nil {
		return nil, fmt.Errorf("get emotion: %w", err)
	}
	s.Emotion = emotion.Label(label)
	s.UpdatedAt = time.UnixMilli(updated)
	s.Normalize()
	return &s, nil
}

// SaveEmotion upserts the user's current emotion.
func (db *DB) SaveEmotion(ctx context.Context, s *emotion.State) error {
	st := *s
	st.Normalize()
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_emotion (user_id, emotion, intensity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			emotion = excluded.emotion,
			intensity = excluded.intensity,
			updated_at = excluded.updated_at
	`, st.UserID, string(st.Emotion), st.Intensity, st.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save emotion: %w", err)
	}
	return nil
}

// ClearUser deletes every record of a user in one transaction.
func (db *DB) ClearUser(ctx context.Context, userID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear user: %w", err)
	}
	for _, table := range userTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			tx.Rollback()
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear user: %w", err)
	}
	return nil
}
