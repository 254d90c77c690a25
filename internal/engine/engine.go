package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/analysis"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/metrics"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/persona"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/trigger"
)

// BotName is how the companion appears in conversation context.
const BotName = "카오루코"

const (
	defaultSessionIdle  = 30 * time.Minute
	defaultHistoryTurns = 5
	longConversationMin = 5
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Now          func() time.Time
	Client       llm.Client // nil disables generation; Chat then always falls back
	Roller       *milestone.Roller
	Composer     *persona.Composer
	Metrics      *metrics.Metrics
	SessionIdle  time.Duration
	HistoryTurns int
}

// Engine ties detection, the emotion machine, the ledger and events together
// over a Store. Interactions for the same user are serialized.
type Engine struct {
	store    Store
	client   llm.Client
	ledger   *affection.Ledger
	machine  *emotion.Machine
	detector *trigger.Detector
	analyzer *analysis.Analyzer
	roller   *milestone.Roller
	composer *persona.Composer
	metrics  *metrics.Metrics
	now      func() time.Time

	sessionIdle  time.Duration
	historyTurns int

	locks  userLocks
	resets resets
}

// New creates an Engine over st.
func New(st Store, opts Options) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("create engine: nil store")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Roller == nil {
		opts.Roller = milestone.NewRoller(nil, -1, -1)
	}
	if opts.Composer == nil {
		c, err := persona.NewComposer(0)
		if err != nil {
			return nil, fmt.Errorf("create engine: %w", err)
		}
		opts.Composer = c
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = defaultSessionIdle
	}
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	return &Engine{
		store:        st,
		client:       opts.Client,
		ledger:       affection.NewLedger(st, opts.Now),
		machine:      emotion.NewMachine(st, opts.Now),
		detector:     trigger.NewDetector(opts.Now),
		analyzer:     analysis.New(opts.Client, opts.Now),
		roller:       opts.Roller,
		composer:     opts.Composer,
		metrics:      opts.Metrics,
		now:          opts.Now,
		sessionIdle:  opts.SessionIdle,
		historyTurns: opts.HistoryTurns,
	}, nil
}

// Request is one incoming user message. Name is how the companion addresses
// the user and defaults to UserID.
type Request struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

func (r Request) normalize() Request {
	r.UserID = userKey(r.UserID)
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = r.UserID
	}
	return r
}

// userKey trims an identity. Blank identities share the default user.
func userKey(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return llm.DefaultUserName
	}
	return id
}

// Interaction is everything one message changed, plus the instruction for
// the generator.
type Interaction struct {
	UserID         string             `json:"user_id"`
	Detection      trigger.Analysis   `json:"detection"`
	Updates        []affection.Update `json:"affection_updates"`
	Score          int                `json:"affection_score"`
	PreviousScore  int                `json:"previous_score"`
	Stage          affection.Stage    `json:"relationship_stage"`
	StageChanged   bool               `json:"stage_changed"`
	EmotionTrigger emotion.Trigger    `json:"emotion_trigger,omitempty"`
	Emotion        emotion.Result     `json:"emotion"`
	DailyBonus     bool               `json:"daily_bonus"`
	Events         []milestone.Event  `json:"events"`
	Notices        []persona.Notice   `json:"notices"`
	Instruction    string             `json:"instruction"`

	generation uint64
}

// Interact runs the relationship side of one message: bonuses and penalties,
// detection, ledger updates, one emotion step and events. It does not call
// the generator.
func (e *Engine) Interact(ctx context.Context, req Request) (*Interaction, error) {
	req = req.normalize()
	unlock := e.locks.lock(req.UserID)
	defer unlock()
	e.metrics.Interaction()

	now := e.now()
	before, err := e.ledger.Current(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	oldScore := before.Score
	oldLast := before.LastInteraction
	returning := before.ConversationCount > 0

	start, err := e.store.TouchSession(ctx, req.UserID, now, e.sessionIdle)
	if err != nil {
		return nil, err
	}

	ia := &Interaction{UserID: req.UserID, PreviousScore: oldScore, generation: e.resets.generation(req.UserID)}

	bonus, granted, err := e.ledger.DailyBonus(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if granted {
		ia.DailyBonus = true
		e.record(ia, bonus)
	}

	var last *time.Time
	if returning {
		last = &oldLast
	}
	det := e.detector.Analyze(req.Message, start, last)
	if det.Context == nil {
		det.Context = trigger.Flags{}
	}

	ignored := returning && trigger.ShouldApplyIgnorePenalty(det.IgnoreHours)
	if ignored {
		if err := e.apply(ctx, ia, req.UserID, affection.IgnoreLongTime, 1.0); err != nil {
			return nil, err
		}
	}
	for _, m := range det.Affection {
		if err := e.apply(ctx, ia, req.UserID, m.Trigger, m.Multiplier); err != nil {
			return nil, err
		}
	}
	if det.ConversationMinutes >= longConversationMin {
		det.Context[trigger.LongConversation] = true
		mult := trigger.ConversationBonusMultiplier(det.ConversationMinutes)
		if err := e.apply(ctx, ia, req.UserID, affection.LongConversation, mult); err != nil {
			return nil, err
		}
	}
	ia.Detection = det

	t, modifier := selectTrigger(det, ignored)
	res, err := e.machine.Update(ctx, req.UserID, t, modifier)
	if err != nil {
		return nil, err
	}
	ia.EmotionTrigger = t
	ia.Emotion = res
	e.metrics.EmotionTransition(string(res.Previous), string(res.Emotion))

	after, err := e.ledger.Current(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	ia.Score = after.Score
	ia.Stage = affection.StageFor(after.Score)
	ia.StageChanged = affection.StageFor(oldScore) != ia.Stage
	if ia.StageChanged {
		e.metrics.StageChange(string(ia.Stage))
	}

	if err := e.collectEvents(ctx, ia, after, now); err != nil {
		return nil, err
	}

	ia.Instruction = e.composer.Build(persona.Input{
		UserName:  req.Name,
		Emotion:   res.Emotion,
		Intensity: res.Intensity,
		Score:     ia.Score,
		Stage:     ia.Stage,
		Flags:     det.Context,
	})
	ia.Notices = notices(ia, bonus)
	return ia, nil
}

func (e *Engine) apply(ctx context.Context, ia *Interaction, userID string, t affection.Trigger, multiplier float64) error {
	u, err := e.ledger.Update(ctx, userID, t, multiplier)
	if err != nil {
		return err
	}
	e.record(ia, u)
	return nil
}

func (e *Engine) record(ia *Interaction, u affection.Update) {
	ia.Updates = append(ia.Updates, u)
	e.metrics.Trigger(string(u.Trigger))
}

// collectEvents gathers the milestone crossed, a stage topic, dated special
// events and a random event. Birthday and anniversary fire once per user per
// day; every delivered event is written to the event history.
func (e *Engine) collectEvents(ctx context.Context, ia *Interaction, st *affection.State, now time.Time) error {
	day := now.Format(time.DateOnly)
	stamp := strconv.FormatInt(now.UnixNano(), 10)

	candidates := []struct {
		ev    *milestone.Event
		key   string
		dedup bool
	}{
		{milestone.Check(ia.PreviousScore, ia.Score), "", false},
		{e.roller.SuggestTopic(ia.Stage), stamp, false},
		{milestone.Birthday(now), day, true},
		{milestone.Anniversary(st.FirstMet, now), day, true},
		{e.roller.RandomEvent(), stamp, false},
	}
	for _, c := range candidates {
		if c.ev == nil {
			continue
		}
		key := c.key
		if c.ev.Kind == milestone.KindMilestone {
			key = strconv.Itoa(c.ev.Threshold) + "@" + stamp
		}
		payload, err := json.Marshal(c.ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		fresh, err := e.store.RecordEvent(ctx, store.Event{
			UserID:    ia.UserID,
			Kind:      string(c.ev.Kind),
			Key:       key,
			Payload:   string(payload),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if c.dedup && !fresh {
			continue
		}
		ia.Events = append(ia.Events, *c.ev)
		e.metrics.Event(string(c.ev.Kind))
	}
	return nil
}

// notices lists, in order: a stage rise, an emotion change, the daily bonus
// and the net affection change of the interaction.
func notices(ia *Interaction, bonus affection.Update) []persona.Notice {
	var out []persona.Notice
	if ia.leveledUp() {
		out = append(out, persona.LevelUp(ia.Stage))
	}
	if ia.Emotion.Changed {
		out = append(out, persona.EmotionChange(ia.Emotion.Previous, ia.Emotion.Emotion))
	}
	if ia.DailyBonus {
		out = append(out, persona.DailyBonus(bonus.Delta))
	}
	if n, ok := persona.AffectionChange(ia.Score - ia.PreviousScore); ok {
		out = append(out, n)
	}
	return out
}

// leveledUp reports whether the interaction moved the user to a higher stage.
func (ia *Interaction) leveledUp() bool {
	return ia.StageChanged && stageRank(ia.Stage) > stageRank(affection.StageFor(ia.PreviousScore))
}

func stageRank(s affection.Stage) int {
	for i, info := range affection.Stages() {
		if info.Stage == s {
			return i
		}
	}
	return -1
}

// Detect runs trigger detection without touching any state.
func (e *Engine) Detect(message string) trigger.Analysis {
	return e.detector.Analyze(message, time.Time{}, nil)
}

// Instruction composes the current persona instruction for a user without
// changing state.
func (e *Engine) Instruction(ctx context.Context, userID, name string) (string, error) {
	req := Request{UserID: userID, Name: name}.normalize()
	aff, err := e.ledger.Current(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	emo, err := e.machine.Current(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	return e.composer.Build(persona.Input{
		UserName:  req.Name,
		Emotion:   emo.Emotion,
		Intensity: emo.Intensity,
		Score:     aff.Score,
		Stage:     affection.StageFor(aff.Score),
	}), nil
}

// Ping checks the store.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// Close closes the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// HasGenerator reports whether replies come from a generator rather than the
// fallback lines.
func (e *Engine) HasGenerator() bool {
	return e.client != nil
}
