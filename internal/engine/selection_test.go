package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/trigger"
)

func TestSelectTrigger(t *testing.T) {
	tests := []struct {
		name     string
		a        trigger.Analysis
		ignored  bool
		want     emotion.Trigger
		modifier float64
	}{
		{
			name: "cue wins over everything",
			a: trigger.Analysis{
				Cues:      []emotion.Trigger{emotion.Apology},
				Affection: []trigger.Match{{Trigger: affection.Compliment, Multiplier: 1.5}},
			},
			ignored:  true,
			want:     emotion.Apology,
			modifier: 1,
		},
		{
			name: "first mappable affection trigger with its multiplier",
			a: trigger.Analysis{Affection: []trigger.Match{
				{Trigger: affection.DailyChat, Multiplier: 1},
				{Trigger: affection.GiftMention, Multiplier: 1.5},
				{Trigger: affection.Compliment, Multiplier: 1},
			}},
			want:     emotion.Gift,
			modifier: 1.5,
		},
		{
			name:     "negative affection",
			a:        trigger.Analysis{Affection: []trigger.Match{{Trigger: affection.HarshWords, Multiplier: 1}}},
			want:     emotion.Disappointment,
			modifier: 1,
		},
		{
			name:     "long absence",
			a:        trigger.Analysis{Context: trigger.Flags{trigger.Goodbye: true}},
			ignored:  true,
			want:     emotion.Ignored,
			modifier: 1,
		},
		{
			name:     "first meeting before goodbye",
			a:        trigger.Analysis{Context: trigger.Flags{trigger.FirstMeeting: true, trigger.Goodbye: true}},
			want:     emotion.FirstMeeting,
			modifier: 1,
		},
		{
			name:     "special occasion",
			a:        trigger.Analysis{Context: trigger.Flags{trigger.SpecialOccasion: true}},
			want:     emotion.SpecialMoment,
			modifier: 1,
		},
		{
			name:     "goodbye",
			a:        trigger.Analysis{Context: trigger.Flags{trigger.Goodbye: true, trigger.Question: true}},
			want:     emotion.Farewell,
			modifier: 1,
		},
		{
			name:     "strongest detected emotion",
			a:        trigger.Analysis{Emotions: []trigger.Candidate{{Emotion: emotion.Sadness, Confidence: 0.6}, {Emotion: emotion.Joy, Confidence: 0.3}}},
			want:     emotion.BadNews,
			modifier: 0.8 + 0.4*0.6,
		},
		{
			name:     "nothing applies",
			a:        trigger.Analysis{Context: trigger.Flags{trigger.Question: true}},
			want:     "",
			modifier: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mod := selectTrigger(tt.a, tt.ignored)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, tt.modifier, mod, 1e-9)
		})
	}
}

func TestUserLocksSerializeSameUser(t *testing.T) {
	var l userLocks
	unlock := l.lock("a")
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.lock("a")()
	}()
	select {
	case <-done:
		t.Fatal("second lock on the same user did not wait")
	default:
	}
	unlock()
	<-done
}
