package trigger

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
)

const (
	matchWeight      = 0.3
	amplifier        = 1.5
	minConfidence    = 0.3
	maxCandidates    = 2
	intensifiedMult  = 1.5
	hedgedMult       = 0.8
	ignorePenaltyHrs = 24
)

// Flag is a situational marker detected in a message.
type Flag string

const (
	FirstMeeting     Flag = "first_meeting"
	Goodbye          Flag = "goodbye"
	SpecialOccasion  Flag = "special_occasion"
	Question         Flag = "question"
	LongConversation Flag = "long_conversation"
)

// FlagOrder is the fixed order in which flags are reported and rendered.
var FlagOrder = []Flag{FirstMeeting, Goodbye, SpecialOccasion, LongConversation, Question}

// Flags is a set of situational flags.
type Flags map[Flag]bool

// Has reports whether f is set.
func (fs Flags) Has(f Flag) bool { return fs[f] }

// List returns the set flags in FlagOrder.
func (fs Flags) List() []Flag {
	var out []Flag
	for _, f := range FlagOrder {
		if fs[f] {
			out = append(out, f)
		}
	}
	return out
}

// Candidate is a ranked emotion suggestion for a message.
type Candidate struct {
	Emotion    emotion.Label `json:"emotion"`
	Confidence float64       `json:"confidence"`
}

// Match is an affection trigger found in a message.
type Match struct {
	Trigger    affection.Trigger `json:"trigger"`
	Multiplier float64           `json:"multiplier"`
}

// Analysis bundles every detection result for one message.
type Analysis struct {
	Emotions            []Candidate       `json:"emotions"`
	Affection           []Match           `json:"affection"`
	Cues                []emotion.Trigger `json:"cues,omitempty"`
	Context             Flags             `json:"context"`
	ConversationMinutes int               `json:"conversation_minutes"`
	IgnoreHours         int               `json:"ignore_hours"`
	HasLastInteraction  bool              `json:"has_last_interaction"`
}

// Detector scans messages against the pattern library. It holds no state
// besides its clock and is safe for concurrent use.
type Detector struct {
	now func() time.Time
}

// NewDetector creates a Detector. A nil clock uses time.Now.
func NewDetector(now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{now: now}
}

// Analyze runs every detection over msg. last may be nil for users with no
// previous interaction.
func (d *Detector) Analyze(msg string, conversationStart time.Time, last *time.Time) Analysis {
	a := Analysis{
		Emotions:            DetectEmotions(msg),
		Affection:           DetectAffection(msg),
		Cues:                DetectCues(msg),
		Context:             DetectContext(msg),
		ConversationMinutes: d.ConversationLength(conversationStart),
	}
	if last != nil {
		a.HasLastInteraction = true
		a.IgnoreHours = d.IgnoreDuration(*last)
	}
	return a
}

// DetectEmotions scores each emotion by 0.3 per pattern match, amplified ×1.5
// when an emotion-specific intensifier is present. Candidates under 0.3 are
// dropped; at most two are returned, strongest first, ties in declaration
// order.
func DetectEmotions(msg string) []Candidate {
	text := strings.ToLower(msg)
	var out []Candidate
	for _, g := range emotionGroups {
		confidence := 0.0
		for _, re := range g.patterns {
			if n := len(re.FindAllStringIndex(text, -1)); n > 0 {
				confidence += float64(n) * matchWeight
			}
		}
		if containsAny(text, g.intensifiers) {
			confidence *= amplifier
		}
		if confidence >= minConfidence {
			if confidence > 1 {
				confidence = 1
			}
			out = append(out, Candidate{Emotion: g.label, Confidence: confidence})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

// DetectAffection reports at most one match per trigger category: the first
// matching pattern wins. Positive matches are amplified ×1.5 by intensifiers
// or damped ×0.8 by hedges; negative matches are only amplified.
func DetectAffection(msg string) []Match {
	text := strings.ToLower(msg)
	var out []Match
	for _, g := range positiveGroups {
		if !matchAny(text, g.patterns) {
			continue
		}
		mult := 1.0
		switch {
		case containsAny(text, positiveIntensifiers):
			mult = intensifiedMult
		case containsAny(text, positiveHedges):
			mult = hedgedMult
		}
		out = append(out, Match{Trigger: g.trigger, Multiplier: mult})
	}
	for _, g := range negativeGroups {
		if !matchAny(text, g.patterns) {
			continue
		}
		mult := 1.0
		if containsAny(text, negativeIntensifiers) {
			mult = intensifiedMult
		}
		out = append(out, Match{Trigger: g.trigger, Multiplier: mult})
	}
	return out
}

// DetectCues finds direct apology and comfort in a message.
func DetectCues(msg string) []emotion.Trigger {
	text := strings.ToLower(msg)
	var out []emotion.Trigger
	for _, g := range cueGroups {
		if matchAny(text, g.patterns) {
			out = append(out, g.trigger)
		}
	}
	return out
}

// DetectContext sets each situational flag independently.
func DetectContext(msg string) Flags {
	text := strings.ToLower(msg)
	flags := Flags{}
	if matchAny(text, specialOccasionPatterns) {
		flags[SpecialOccasion] = true
	}
	if containsAny(text, firstMeetingWords) {
		flags[FirstMeeting] = true
	}
	if containsAny(text, goodbyeWords) {
		flags[Goodbye] = true
	}
	if containsAny(text, questionMarks) || containsAny(text, questionWords) {
		flags[Question] = true
	}
	return flags
}

// ConversationLength returns whole minutes since start. Future starts count
// as zero.
func (d *Detector) ConversationLength(start time.Time) int {
	if start.IsZero() {
		return 0
	}
	m := int(d.now().Sub(start) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}

// IgnoreDuration returns whole hours since the last interaction.
func (d *Detector) IgnoreDuration(last time.Time) int {
	if last.IsZero() {
		return 0
	}
	h := int(d.now().Sub(last) / time.Hour)
	if h < 0 {
		return 0
	}
	return h
}

// ConversationBonusMultiplier scales the long-conversation bonus.
func ConversationBonusMultiplier(minutes int) float64 {
	switch {
	case minutes >= 30:
		return 2.0
	case minutes >= 15:
		return 1.5
	case minutes >= 5:
		return 1.2
	default:
		return 1.0
	}
}

// ShouldApplyIgnorePenalty is true after a day or more of silence.
func ShouldApplyIgnorePenalty(hours int) bool {
	return hours >= ignorePenaltyHrs
}

// ContextEmotionModifiers returns per-emotion confidence multipliers for the
// active flags. Later flags override earlier ones for the same emotion.
func ContextEmotionModifiers(flags Flags) map[emotion.Label]float64 {
	mods := map[emotion.Label]float64{}
	if flags.Has(FirstMeeting) {
		mods[emotion.Bashful] = 1.5
		mods[emotion.Surprise] = 1.2
	}
	if flags.Has(Goodbye) {
		mods[emotion.Sadness] = 1.3
		mods[emotion.Joy] = 0.8
	}
	if flags.Has(SpecialOccasion) {
		mods[emotion.Joy] = 1.5
		mods[emotion.Longing] = 1.3
	}
	return mods
}

// ApplyModifiers scales candidate confidences, caps them at 1 and re-ranks.
func ApplyModifiers(cands []Candidate, mods map[emotion.Label]float64) []Candidate {
	out := make([]Candidate, len(cands))
	for i, c := range cands {
		if m, ok := mods[c.Emotion]; ok {
			c.Confidence *= m
			if c.Confidence > 1 {
				c.Confidence = 1
			}
		}
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func matchAny(text string, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
