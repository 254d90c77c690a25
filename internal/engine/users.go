package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/analysis"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/persona"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/transcript"
)

// Status is the relationship overview shown to a user.
type Status struct {
	UserID            string          `json:"user_id"`
	Score             int             `json:"affection_score"`
	Stage             affection.Stage `json:"relationship_stage"`
	StageName         string          `json:"stage_name"`
	StageDescription  string          `json:"stage_description"`
	Progress          float64         `json:"progress"`
	Hearts            string          `json:"hearts"`
	Unlocks           []string        `json:"unlocks,omitempty"`
	ConversationCount int             `json:"conversation_count"`
	FirstMet          time.Time       `json:"first_met"`
	LastInteraction   time.Time       `json:"last_interaction"`
	DaysSinceFirstMet int             `json:"days_since_first_met"`
	Title             string          `json:"title"`
	Greeting          string          `json:"greeting"`
	Emotion           emotion.Label   `json:"emotion"`
	EmotionName       string          `json:"emotion_name"`
	Intensity         float64         `json:"intensity"`
	IntensityLevel    int             `json:"intensity_level"`
	Emoji             string          `json:"emoji"`
	Color             string          `json:"color"`
}

// Status reports a user's relationship. Unknown users are created, as on
// their first message.
func (e *Engine) Status(ctx context.Context, userID, name string) (*Status, error) {
	req := Request{UserID: userID, Name: name}.normalize()
	aff, err := e.ledger.Current(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	emo, err := e.machine.Current(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	stage := affection.StageFor(aff.Score)
	info := affection.Info(stage)
	def, _ := emotion.Lookup(emo.Emotion)
	return &Status{
		UserID:            req.UserID,
		Score:             aff.Score,
		Stage:             stage,
		StageName:         info.Korean,
		StageDescription:  info.Description,
		Progress:          affection.Progress(aff.Score),
		Hearts:            affection.Hearts(aff.Score),
		Unlocks:           info.Unlocks,
		ConversationCount: aff.ConversationCount,
		FirstMet:          aff.FirstMet,
		LastInteraction:   aff.LastInteraction,
		DaysSinceFirstMet: aff.DaysSinceFirstMet(e.now()),
		Title:             affection.Title(req.Name, aff.Score),
		Greeting:          persona.Greeting(stage, req.Name),
		Emotion:           emo.Emotion,
		EmotionName:       def.Korean,
		Intensity:         emo.Intensity,
		IntensityLevel:    emotion.ToScale10(emo.Intensity),
		Emoji:             def.Emoji,
		Color:             def.Color,
	}, nil
}

// Reset forgets everything about a user. The next message starts over as a
// first meeting.
func (e *Engine) Reset(ctx context.Context, userID string) error {
	userID = userKey(userID)
	unlock := e.locks.lock(userID)
	defer unlock()
	e.resets.bump(userID)
	return e.store.ClearUser(ctx, userID)
}

// EmotionStats summarizes every observation recorded for a user.
func (e *Engine) EmotionStats(ctx context.Context, userID string) (analysis.Stats, error) {
	obs, err := e.store.Observations(ctx, userKey(userID), 0)
	if err != nil {
		return analysis.Stats{}, err
	}
	return analysis.Summarize(obs), nil
}

// Observations returns the user's last limit observations, oldest first.
func (e *Engine) Observations(ctx context.Context, userID string, limit int) ([]emotion.Observation, error) {
	return e.store.Observations(ctx, userKey(userID), limit)
}

// History returns the user's last limit chat turns, oldest first. A
// non-positive limit returns everything.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]transcript.Turn, error) {
	return e.store.RecentTurns(ctx, userKey(userID), limit)
}

// Events returns the user's recent events, newest first.
func (e *Engine) Events(ctx context.Context, userID string, limit int) ([]store.Event, error) {
	return e.store.Events(ctx, userKey(userID), limit)
}

// Export writes a user's whole chat history as JSONL and returns the number
// of turns written.
func (e *Engine) Export(ctx context.Context, userID string, w io.Writer) (int, error) {
	turns, err := e.History(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	if err := transcript.Write(w, turns); err != nil {
		return 0, fmt.Errorf("export history: %w", err)
	}
	return len(turns), nil
}

// Import appends JSONL turns to the chat history. When userID is set every
// turn is filed under it; otherwise turns keep their own user and turns
// without one are skipped.
func (e *Engine) Import(ctx context.Context, userID string, r io.Reader) (imported, skipped int, err error) {
	turns, skipped, err := transcript.Read(r)
	if err != nil {
		return 0, skipped, fmt.Errorf("import history: %w", err)
	}
	userID = strings.TrimSpace(userID)
	for _, t := range turns {
		if userID != "" {
			t.UserID = userID
		}
		if t.UserID == "" {
			skipped++
			continue
		}
		if t.Timestamp.IsZero() {
			t.Timestamp = e.now()
		}
		if err := e.store.AppendTurn(ctx, t); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}
