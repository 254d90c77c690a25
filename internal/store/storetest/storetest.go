// Package storetest holds the behavioural tests every persistence backend
// must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/transcript"
)

// Backend is the persistence surface under test.
type Backend interface {
	Affection(ctx context.Context, userID string, now time.Time) (*affection.State, error)
	SaveAffection(ctx context.Context, s *affection.State) error
	Emotion(ctx context.Context, userID string, now time.Time) (*emotion.State, error)
	SaveEmotion(ctx context.Context, s *emotion.State) error
	AppendObservation(ctx context.Context, o emotion.Observation) error
	Observations(ctx context.Context, userID string, limit int) ([]emotion.Observation, error)
	AppendTurn(ctx context.Context, t transcript.Turn) error
	RecentTurns(ctx context.Context, userID string, limit int) ([]transcript.Turn, error)
	TouchSession(ctx context.Context, userID string, now time.Time, idle time.Duration) (time.Time, error)
	RecordEvent(ctx context.Context, e store.Event) (bool, error)
	Events(ctx context.Context, userID string, limit int) ([]store.Event, error)
	ClearUser(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// base is millisecond-aligned so every backend round-trips it exactly.
var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// Run exercises a fresh backend from open for each subtest.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b Backend)
	}{
		{"AffectionGetOrCreate", testAffectionGetOrCreate},
		{"AffectionSave", testAffectionSave},
		{"EmotionGetOrCreate", testEmotionGetOrCreate},
		{"EmotionSaveNormalizes", testEmotionSave},
		{"Observations", testObservations},
		{"Turns", testTurns},
		{"Sessions", testSessions},
		{"Events", testEvents},
		{"ClearUser", testClearUser},
		{"Ping", testPing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func testAffectionGetOrCreate(t *testing.T, b Backend) {
	ctx := context.Background()
	s, err := b.Affection(ctx, "민수", base)
	require.NoError(t, err)
	assert.Equal(t, "민수", s.UserID)
	assert.Zero(t, s.Score)
	assert.Zero(t, s.ConversationCount)
	assert.True(t, s.FirstMet.Equal(base))
	assert.True(t, s.LastInteraction.Equal(base))

	// a second read keeps the original creation time
	again, err := b.Affection(ctx, "민수", base.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, again.FirstMet.Equal(base))
}

func testAffectionSave(t *testing.T, b Backend) {
	ctx := context.Background()
	s, err := b.Affection(ctx, "u", base)
	require.NoError(t, err)

	s.Score = 42
	s.ConversationCount = 7
	s.LastInteraction = base.Add(2 * time.Hour)
	require.NoError(t, b.SaveAffection(ctx, s))

	got, err := b.Affection(ctx, "u", base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 42, got.Score)
	assert.Equal(t, 7, got.ConversationCount)
	assert.True(t, got.LastInteraction.Equal(base.Add(2*time.Hour)))
	assert.True(t, got.FirstMet.Equal(base))
}

func testEmotionGetOrCreate(t *testing.T, b Backend) {
	s, err := b.Emotion(context.Background(), "u", base)
	require.NoError(t, err)
	assert.Equal(t, emotion.Bashful, s.Emotion)
	assert.Equal(t, emotion.DefaultIntensity, s.Intensity)
}

func testEmotionSave(t *testing.T, b Backend) {
	ctx := context.Background()
	require.NoError(t, b.SaveEmotion(ctx, &emotion.State{UserID: "u", Emotion: emotion.Longing, Intensity: 0.75, UpdatedAt: base}))
	s, err := b.Emotion(ctx, "u", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, emotion.Longing, s.Emotion)
	assert.InDelta(t, 0.75, s.Intensity, 1e-9)

	require.NoError(t, b.SaveEmotion(ctx, &emotion.State{UserID: "u", Emotion: "bored", Intensity: 3, UpdatedAt: base}))
	s, err = b.Emotion(ctx, "u", base)
	require.NoError(t, err)
	assert.Equal(t, emotion.Bashful, s.Emotion)
	assert.Equal(t, 1.0, s.Intensity)
}

func testObservations(t *testing.T, b Backend) {
	ctx := context.Background()
	labels := []emotion.Label{emotion.Joy, emotion.Sadness, emotion.Longing}
	for i, l := range labels {
		require.NoError(t, b.AppendObservation(ctx, emotion.Observation{
			UserID: "u", Emotion: l, Intensity: 5 + i, Reason: "r", Confidence: 0.5,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, b.AppendObservation(ctx, emotion.Observation{UserID: "other", Emotion: emotion.Anger, Intensity: 5, Timestamp: base}))

	all, err := b.Observations(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, emotion.Joy, all[0].Emotion, "oldest first")
	assert.Equal(t, 7, all[2].Intensity)

	last, err := b.Observations(ctx, "u", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, emotion.Sadness, last[0].Emotion)
	assert.Equal(t, emotion.Longing, last[1].Emotion)
}

func testTurns(t *testing.T, b Backend) {
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		require.NoError(t, b.AppendTurn(ctx, transcript.Turn{
			UserID: "u", UserMessage: fmt.Sprintf("m%d", i), BotReply: fmt.Sprintf("r%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	recent, err := b.RecentTurns(ctx, "u", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "m2", recent[0].UserMessage)
	assert.Equal(t, "m6", recent[4].UserMessage)
	assert.True(t, recent[4].Timestamp.Equal(base.Add(6*time.Second)))

	all, err := b.RecentTurns(ctx, "u", 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	none, err := b.RecentTurns(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSessions(t *testing.T, b Backend) {
	ctx := context.Background()
	idle := 30 * time.Minute

	start, err := b.TouchSession(ctx, "u", base, idle)
	require.NoError(t, err)
	assert.True(t, start.Equal(base))

	start, err = b.TouchSession(ctx, "u", base.Add(20*time.Minute), idle)
	require.NoError(t, err)
	assert.True(t, start.Equal(base), "activity within the idle window continues the conversation")

	start, err = b.TouchSession(ctx, "u", base.Add(45*time.Minute), idle)
	require.NoError(t, err)
	assert.True(t, start.Equal(base), "idle is measured from the last activity")

	later := base.Add(2 * time.Hour)
	start, err = b.TouchSession(ctx, "u", later, idle)
	require.NoError(t, err)
	assert.True(t, start.Equal(later), "a long gap starts a new conversation")
}

func testEvents(t *testing.T, b Backend) {
	ctx := context.Background()
	ev := store.Event{UserID: "u", Kind: "birthday", Key: "2026-07-22", Payload: "🎂", CreatedAt: base}

	fresh, err := b.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = b.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.False(t, fresh, "same key is recorded once")

	ev.Key = "2027-07-22"
	ev.CreatedAt = base.Add(time.Hour)
	fresh, err = b.RecordEvent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, fresh)

	events, err := b.Events(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2027-07-22", events[0].Key, "newest first")
	assert.Equal(t, "🎂", events[1].Payload)
}

func testClearUser(t *testing.T, b Backend) {
	ctx := context.Background()
	s, err := b.Affection(ctx, "u", base)
	require.NoError(t, err)
	s.Score = 50
	require.NoError(t, b.SaveAffection(ctx, s))
	require.NoError(t, b.SaveEmotion(ctx, &emotion.State{UserID: "u", Emotion: emotion.Joy, Intensity: 0.9, UpdatedAt: base}))
	require.NoError(t, b.AppendObservation(ctx, emotion.Observation{UserID: "u", Emotion: emotion.Joy, Intensity: 8, Timestamp: base}))
	require.NoError(t, b.AppendTurn(ctx, transcript.Turn{UserID: "u", UserMessage: "hi", BotReply: "hello", Timestamp: base}))
	_, err = b.TouchSession(ctx, "u", base, time.Minute)
	require.NoError(t, err)
	_, err = b.RecordEvent(ctx, store.Event{UserID: "u", Kind: "k", Key: "1", CreatedAt: base})
	require.NoError(t, err)
	_, err = b.Affection(ctx, "keep", base)
	require.NoError(t, err)

	require.NoError(t, b.ClearUser(ctx, "u"))

	later := base.Add(48 * time.Hour)
	s, err = b.Affection(ctx, "u", later)
	require.NoError(t, err)
	assert.Zero(t, s.Score)
	assert.True(t, s.FirstMet.Equal(later))

	e, err := b.Emotion(ctx, "u", later)
	require.NoError(t, err)
	assert.Equal(t, emotion.Bashful, e.Emotion)

	obs, err := b.Observations(ctx, "u", 0)
	require.NoError(t, err)
	assert.Empty(t, obs)
	turns, err := b.RecentTurns(ctx, "u", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
	events, err := b.Events(ctx, "u", 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	start, err := b.TouchSession(ctx, "u", later, time.Hour)
	require.NoError(t, err)
	assert.True(t, start.Equal(later))

	kept, err := b.Affection(ctx, "keep", later)
	require.NoError(t, err)
	assert.True(t, kept.FirstMet.Equal(base), "other users are untouched")
}

func testPing(t *testing.T, b Backend) {
	assert.NoError(t, b.Ping(context.Background()))
}
