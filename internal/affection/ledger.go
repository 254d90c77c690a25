package affection

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Trigger is a signed relationship event.
type Trigger string

const (
	DailyChat            Trigger = "daily_chat"
	LongConversation     Trigger = "long_conversation"
	Compliment           Trigger = "compliment"
	RememberDetails      Trigger = "remember_details"
	GiftMention          Trigger = "gift_mention"
	RomanticGesture      Trigger = "romantic_gesture"
	SpecialOccasion      Trigger = "special_occasion"
	RudeBehavior         Trigger = "rude_behavior"
	IgnoreLongTime       Trigger = "ignore_long_time"
	InappropriateContent Trigger = "inappropriate_content"
	BreakPromise         Trigger = "break_promise"
	HarshWords           Trigger = "harsh_words"
)

var weights = map[Trigger]int{
	DailyChat:            1,
	LongConversation:     2,
	Compliment:           3,
	RememberDetails:      5,
	GiftMention:          7,
	RomanticGesture:      10,
	SpecialOccasion:      15,
	RudeBehavior:         -5,
	IgnoreLongTime:       -3,
	InappropriateContent: -10,
	BreakPromise:         -8,
	HarshWords:           -6,
}

// Weight returns the base weight of a trigger. Unknown triggers weigh 0.
func Weight(t Trigger) int {
	return weights[t]
}

// Delta is ceil(weight × multiplier).
func Delta(t Trigger, multiplier float64) int {
	return int(math.Ceil(float64(Weight(t)) * multiplier))
}

// Apply returns the clamped score after applying a trigger and the delta that
// was computed for it.
func Apply(score int, t Trigger, multiplier float64) (int, int) {
	delta := Delta(t, multiplier)
	return Clamp(score + delta), delta
}

// State is the persisted affection record of a user.
type State struct {
	UserID            string    `json:"user_id"`
	Score             int       `json:"score"`
	ConversationCount int       `json:"conversation_count"`
	FirstMet          time.Time `json:"first_met"`
	LastInteraction   time.Time `json:"last_interaction"`
}

// DaysSinceFirstMet counts calendar days between the first meeting and now.
func (s *State) DaysSinceFirstMet(now time.Time) int {
	return daysBetween(s.FirstMet, now)
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Store persists affection state. Affection is get-or-create.
type Store interface {
	Affection(ctx context.Context, userID string, now time.Time) (*State, error)
	SaveAffection(ctx context.Context, s *State) error
}

// Update is the outcome of one ledger change.
type Update struct {
	Trigger      Trigger `json:"trigger"`
	Previous     int     `json:"previous"`
	Score        int     `json:"score"`
	Delta        int     `json:"delta"`
	StageBefore  Stage   `json:"stage_before"`
	StageAfter   Stage   `json:"stage_after"`
	StageChanged bool    `json:"stage_changed"`
}

// Ledger applies bounded, signed deltas to per-user affection.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a Ledger. A nil clock uses time.Now.
func NewLedger(store Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

// Current returns the user's affection state, creating it for new users.
func (l *Ledger) Current(ctx context.Context, userID string) (*State, error) {
	s, err := l.store.Affection(ctx, userID, l.now())
	if err != nil {
		return nil, fmt.Errorf("load affection: %w", err)
	}
	s.Score = Clamp(s.Score)
	return s, nil
}

// Update applies a trigger. Score, conversation count and last interaction
// are written together in one save.
func (l *Ledger) Update(ctx context.Context, userID string, t Trigger, multiplier float64) (Update, error) {
	s, err := l.Current(ctx, userID)
	if err != nil {
		return Update{}, err
	}
	return l.apply(ctx, s, t, multiplier)
}

func (l *Ledger) apply(ctx context.Context, s *State, t Trigger, multiplier float64) (Update, error) {
	score, delta := Apply(s.Score, t, multiplier)
	u := Update{
		Trigger:     t,
		Previous:    s.Score,
		Score:       score,
		Delta:       delta,
		StageBefore: StageFor(s.Score),
		StageAfter:  StageFor(score),
	}
	u.StageChanged = u.StageBefore != u.StageAfter

	s.Score = score
	s.ConversationCount++
	s.LastInteraction = l.now()
	if err := l.store.SaveAffection(ctx, s); err != nil {
		return Update{}, fmt.Errorf("save affection: %w", err)
	}
	return u, nil
}

// DailyBonus grants daily_chat at most once per calendar day, gated on the
// last interaction falling before today. granted is false when no bonus was
// due.
func (l *Ledger) DailyBonus(ctx context.Context, userID string) (u Update, granted bool, err error) {
	s, err := l.Current(ctx, userID)
	if err != nil {
		return Update{}, false, err
	}
	if !beforeToday(s.LastInteraction, l.now()) {
		return Update{}, false, nil
	}
	u, err = l.apply(ctx, s, DailyChat, 1.0)
	if err != nil {
		return Update{}, false, err
	}
	return u, true, nil
}

func beforeToday(last, now time.Time) bool {
	last = last.In(now.Location())
	ly, lm, ld := last.Date()
	ny, nm, nd := now.Date()
	if ly != ny {
		return ly < ny
	}
	if lm != nm {
		return lm < nm
	}
	return ld < nd
}
