package emotion

import (
	"context"
	"fmt"
	"time"
)

// Trigger is an emotional event that can move the state machine.
type Trigger string

const (
	Compliment            Trigger = "compliment"
	AffectionExpression   Trigger = "affection_expression"
	FirstMeeting          Trigger = "first_meeting"
	EmbarrassingSituation Trigger = "embarrassing_situation"
	GoodNews              Trigger = "good_news"
	Gift                  Trigger = "gift"
	Success               Trigger = "success"
	FunnyStory            Trigger = "funny_story"
	BadNews               Trigger = "bad_news"
	Rejection             Trigger = "rejection"
	Farewell              Trigger = "farewell"
	Disappointment        Trigger = "disappointment"
	Loneliness            Trigger = "loneliness"
	Rudeness              Trigger = "rudeness"
	BrokenPromise         Trigger = "broken_promise"
	Ignored               Trigger = "ignored"
	Unfairness            Trigger = "unfairness"
	Insult                Trigger = "insult"
	Unexpected            Trigger = "unexpected"
	SurpriseEvent         Trigger = "surprise_event"
	NewInformation        Trigger = "new_information"
	SurpriseTrigger       Trigger = "surprise"
	DateProposal          Trigger = "date_proposal"
	RomanticWords         Trigger = "romantic_words"
	SpecialMoment         Trigger = "special_moment"
	Confession            Trigger = "confession"
	Comfort               Trigger = "comfort"
	Apology               Trigger = "apology"
)

type transitionKey struct {
	from    Label
	trigger Trigger
}

type transitionTarget struct {
	to        Label
	intensity float64
}

// transitions are explicit (emotion, trigger) moves that take precedence over
// trigger-list lookups.
var transitions = map[transitionKey]transitionTarget{
	{Bashful, Compliment}:          {Joy, 0.7},
	{Bashful, AffectionExpression}: {Longing, 0.8},
	{Joy, AffectionExpression}:     {Longing, 0.9},
	{Joy, BadNews}:                 {Sadness, 0.6},
	{Sadness, Comfort}:             {Bashful, 0.6},
	{Sadness, Compliment}:          {Joy, 0.5},
	{Anger, Apology}:               {Bashful, 0.4},
	{Anger, Ignored}:               {Sadness, 0.7},
	{Surprise, GoodNews}:           {Joy, 0.8},
	{Surprise, BadNews}:            {Sadness, 0.7},
	{Longing, Disappointment}:      {Sadness, 0.8},
	{Longing, Compliment}:          {Joy, 0.6},
}

// Transition returns the explicit table entry for (from, trigger), if any.
func Transition(from Label, t Trigger) (Label, float64, bool) {
	target, ok := transitions[transitionKey{from, t}]
	return target.to, target.intensity, ok
}

// Step applies one trigger to a state and returns the next emotion and
// intensity. The empty trigger and unknown triggers decay the current
// emotion. Non-positive modifiers are treated as 1.
func Step(cur Label, intensity float64, t Trigger, modifier float64) (Label, float64) {
	if !cur.Valid() {
		cur = Default
	}
	if modifier <= 0 {
		modifier = 1
	}

	if to, base, ok := Transition(cur, t); ok {
		return to, clamp(base*modifier, 0, 1)
	}

	if t != "" {
		for _, l := range Labels {
			d := definitions[l]
			for _, candidate := range d.Triggers {
				if candidate == t {
					mid := (d.Min + d.Max) / 2
					return l, clamp(mid*modifier, d.Min, d.Max)
				}
			}
		}
	}

	decayed := clamp(intensity, 0, 1) * decayFactor
	if decayed < intensityMin {
		decayed = intensityMin
	}
	return cur, decayed
}

// StateStore persists per-user emotion state. Emotion is get-or-create.
type StateStore interface {
	Emotion(ctx context.Context, userID string, now time.Time) (*State, error)
	SaveEmotion(ctx context.Context, s *State) error
}

// Result is the outcome of a single Update.
type Result struct {
	Previous          Label   `json:"previous"`
	PreviousIntensity float64 `json:"previous_intensity"`
	Emotion           Label   `json:"emotion"`
	Intensity         float64 `json:"intensity"`
	Changed           bool    `json:"changed"`
}

// Machine drives per-user emotion state through a StateStore.
type Machine struct {
	store StateStore
	now   func() time.Time
}

// NewMachine creates a Machine. A nil clock uses time.Now.
func NewMachine(store StateStore, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{store: store, now: now}
}

// Current returns the user's emotion, creating the default state for new users.
func (m *Machine) Current(ctx context.Context, userID string) (*State, error) {
	s, err := m.store.Emotion(ctx, userID, m.now())
	if err != nil {
		return nil, fmt.Errorf("load emotion: %w", err)
	}
	s.Normalize()
	return s, nil
}

// Update applies a trigger to the user's emotion and persists the result.
func (m *Machine) Update(ctx context.Context, userID string, t Trigger, modifier float64) (Result, error) {
	s, err := m.Current(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	next, intensity := Step(s.Emotion, s.Intensity, t, modifier)
	res := Result{
		Previous:          s.Emotion,
		PreviousIntensity: s.Intensity,
		Emotion:           next,
		Intensity:         intensity,
		Changed:           next != s.Emotion,
	}

	s.Emotion = next
	s.Intensity = intensity
	s.UpdatedAt = m.now()
	if err := m.store.SaveEmotion(ctx, s); err != nil {
		return Result{}, fmt.Errorf("save emotion: %w", err)
	}
	return res, nil
}
