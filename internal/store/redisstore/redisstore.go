// Package redisstore persists heartline state in Redis. Each record is one
// JSON value written with a single SET; append-only histories are lists.
//
// Keys are namespaced as "{prefix}:{record}:{user}".
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/transcript"
)

const defaultPrefix = "heartline"

// Store implements the engine persistence surface on Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New wraps an existing client. An empty prefix uses "heartline".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	s := New(client, prefix)
	if err := s.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) key(record, userID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, record, userID)
}

type affectionRecord struct {
	UserID            string `json:"user_id"`
	Score             int    `json:"score"`
	ConversationCount int    `json:"conversation_count"`
	FirstMet          int64  `json:"first_met"`
	LastInteraction   int64  `json:"last_interaction"`
}

type emotionRecord struct {
	UserID    string  `json:"user_id"`
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
	UpdatedAt int64   `json:"updated_at"`
}

type observationRecord struct {
	Emotion    string  `json:"emotion"`
	Intensity  int     `json:"intensity"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	CreatedAt  int64   `json:"created_at"`
}

type turnRecord struct {
	UserMessage string `json:"user_message"`
	BotReply    string `json:"bot_reply"`
	CreatedAt   int64  `json:"created_at"`
}

type sessionRecord struct {
	StartedAt    int64 `json:"started_at"`
	LastActivity int64 `json:"last_activity"`
}

type eventRecord struct {
	Kind      string `json:"kind"`
	Key       string `json:"key"`
	Payload   string `json:"payload,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Affection returns the user's affection record, creating it at now.
func (s *Store) Affection(ctx context.Context, userID string, now time.Time) (*affection.State, error) {
	k := s.key("affection", userID)
	initial, err := json.Marshal(affectionRecord{UserID: userID, FirstMet: now.UnixMilli(), LastInteraction: now.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("encode affection: %w", err)
	}
	if err := s.client.SetNX(ctx, k, initial, 0).Err(); err != nil {
		return nil, fmt.Errorf("create affection: %w", err)
	}

	var rec affectionRecord
	if err := s.getJSON(ctx, k, &rec); err != nil {
		return nil, fmt.Errorf("get affection: %w", err)
	}
	return &affection.State{
		UserID:            userID,
		Score:             affection.Clamp(rec.Score),
		ConversationCount: rec.ConversationCount,
		FirstMet:          time.UnixMilli(rec.FirstMet),
		LastInteraction:   time.UnixMilli(rec.LastInteraction),
	}, nil
}

// SaveAffection overwrites the user's affection record.
func (s *Store) SaveAffection(ctx context.Context, st *affection.State) error {
	rec := affectionRecord{
		UserID:            st.UserID,
		Score:             affection.Clamp(st.Score),
		ConversationCount: st.ConversationCount,
		FirstMet:          st.FirstMet.UnixMilli(),
		LastInteraction:   st.LastInteraction.UnixMilli(),
	}
	if err := s.setJSON(ctx, s.key("affection", st.UserID), rec); err != nil {
		return fmt.Errorf("save affection: %w", err)
	}
	return nil
}

// Emotion returns the user's emotion, creating the default at now.
func (s *Store) Emotion(ctx context.Context, userID string, now time.Time) (*emotion.State, error) {
	k := s.key("emotion", userID)
	initial, err := json.Marshal(emotionRecord{UserID: userID, Emotion: string(emotion.Default), Intensity: emotion.DefaultIntensity, UpdatedAt: now.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("encode emotion: %w", err)
	}
	if err := s.client.SetNX(ctx, k, initial, 0).Err(); err != nil {
		return nil, fmt.Errorf("create emotion: %w", err)
	}

	var rec emotionRecord
	if err := s.getJSON(ctx, k, &rec); err != nil {
		return nil, fmt.Errorf("get emotion: %w", err)
	}
	st := &emotion.State{
		UserID:    userID,
		Emotion:   emotion.Label(rec.Emotion),
		Intensity: rec.Intensity,
		UpdatedAt: time.UnixMilli(rec.UpdatedAt),
	}
	st.Normalize()
	return st, nil
}

// SaveEmotion overwrites the user's emotion.
func (s *Store) SaveEmotion(ctx context.Context, st *emotion.State) error {
	n := *st
	n.Normalize()
	rec := emotionRecord{UserID: n.UserID, Emotion: string(n.Emotion), Intensity: n.Intensity, UpdatedAt: n.UpdatedAt.UnixMilli()}
	if err := s.setJSON(ctx, s.key("emotion", st.UserID), rec); err != nil {
		return fmt.Errorf("save emotion: %w", err)
	}
	return nil
}

// AppendObservation pushes an observation onto the user's history.
func (s *Store) AppendObservation(ctx context.Context, o emotion.Observation) error {
	rec := observationRecord{
		Emotion:    string(o.Emotion),
		Intensity:  max(1, min(10, o.Intensity)),
		Reason:     o.Reason,
		Confidence: max(0, min(1, o.Confidence)),
		CreatedAt:  o.Timestamp.UnixMilli(),
	}
	if err := s.pushJSON(ctx, s.key("observations", o.UserID), rec); err != nil {
		return fmt.Errorf("add observation: %w", err)
	}
	return nil
}

// Observations returns the last limit observations, oldest first.
func (s *Store) Observations(ctx context.Context, userID string, limit int) ([]emotion.Observation, error) {
	items, err := s.tail(ctx, s.key("observations", userID), limit)
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	obs := make([]emotion.Observation, 0, len(items))
	for _, item := range items {
		var rec observationRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode observation: %w", err)
		}
		obs = append(obs, emotion.Observation{
			UserID:     userID,
			Emotion:    emotion.Label(rec.Emotion),
			Intensity:  rec.Intensity,
			Reason:     rec.Reason,
			Confidence: rec.Confidence,
			Timestamp:  time.UnixMilli(rec.CreatedAt),
		})
	}
	return obs, nil
}

// AppendTurn pushes a chat turn onto the user's history.
func (s *Store) AppendTurn(ctx context.Context, t transcript.Turn) error {
	rec := turnRecord{UserMessage: t.UserMessage, BotReply: t.BotReply, CreatedAt: t.Timestamp.UnixMilli()}
	if err := s.pushJSON(ctx, s.key("turns", t.UserID), rec); err != nil {
		return fmt.Errorf("add turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last limit turns, oldest first.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]transcript.Turn, error) {
	items, err := s.tail(ctx, s.key("turns", userID), limit)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	turns := make([]transcript.Turn, 0, len(items))
	for _, item := range items {
		var rec turnRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, transcript.Turn{
			UserID:      userID,
			UserMessage: rec.UserMessage,
			BotReply:    rec.BotReply,
			Timestamp:   time.UnixMilli(rec.CreatedAt),
		})
	}
	return turns, nil
}

// TouchSession records activity and returns the conversation start. The
// read-modify-write runs under WATCH so concurrent touches retry.
func (s *Store) TouchSession(ctx context.Context, userID string, now time.Time, idle time.Duration) (time.Time, error) {
	k := s.key("session", userID)
	var started int64

	txf := func(tx *redis.Tx) error {
		var rec sessionRecord
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			rec = sessionRecord{StartedAt: now.UnixMilli()}
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			if now.UnixMilli()-rec.LastActivity > idle.Milliseconds() {
				rec.StartedAt = now.UnixMilli()
			}
		}
		rec.LastActivity = now.UnixMilli()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, k, data, 0)
			return nil
		})
		started = rec.StartedAt
		return err
	}

	for range 5 {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("touch session: %w", err)
		}
		return time.UnixMilli(started), nil
	}
	return time.Time{}, fmt.Errorf("touch session: too much contention")
}

// RecordEvent stores an event unless its (kind, key) was seen for the user.
func (s *Store) RecordEvent(ctx context.Context, e store.Event) (bool, error) {
	added, err := s.client.SAdd(ctx, s.key("eventkeys", e.UserID), e.Kind+"\x00"+e.Key).Result()
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	if added == 0 {
		return false, nil
	}
	rec := eventRecord{Kind: e.Kind, Key: e.Key, Payload: e.Payload, CreatedAt: e.CreatedAt.UnixMilli()}
	if err := s.pushJSON(ctx, s.key("events", e.UserID), rec); err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	return true, nil
}

// Events returns the last limit events, newest first.
func (s *Store) Events(ctx context.Context, userID string, limit int) ([]store.Event, error) {
	items, err := s.tail(ctx, s.key("events", userID), limit)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	events := make([]store.Event, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var rec eventRecord
		if err := json.Unmarshal([]byte(items[i]), &rec); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, store.Event{
			UserID:    userID,
			Kind:      rec.Kind,
			Key:       rec.Key,
			Payload:   rec.Payload,
			CreatedAt: time.UnixMilli(rec.CreatedAt),
		})
	}
	return events, nil
}

// ClearUser deletes every key of the user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	records := []string{"affection", "emotion", "observations", "turns", "session", "events", "eventkeys"}
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, s.key(r, userID))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

func (s *Store) pushJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, key, data).Err()
}

// tail returns the last limit list items in insertion order; a non-positive
// limit returns the whole list.
func (s *Store) tail(ctx context.Context, key string, limit int) ([]string, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	return s.client.LRange(ctx, key, start, -1).Result()
}
