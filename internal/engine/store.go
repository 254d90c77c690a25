package engine

import (
	"context"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/transcript"
)

// Store is the persistence the engine runs on. Affection and Emotion are
// get-or-create; each save writes one record atomically.
type Store interface {
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
	Close() error
}
