package engine

import (
	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/trigger"
)

// affectionEmotion maps detected affection triggers onto the emotion
// trigger they stand for. daily_chat has no emotional weight.
var affectionEmotion = map[affection.Trigger]emotion.Trigger{
	affection.Compliment:           emotion.Compliment,
	affection.RomanticGesture:      emotion.AffectionExpression,
	affection.GiftMention:          emotion.Gift,
	affection.RememberDetails:      emotion.SpecialMoment,
	affection.RudeBehavior:         emotion.Rudeness,
	affection.HarshWords:           emotion.Disappointment,
	affection.InappropriateContent: emotion.Insult,
}

// candidateEmotion maps a detected emotion onto the event that evokes it.
var candidateEmotion = map[emotion.Label]emotion.Trigger{
	emotion.Bashful:  emotion.EmbarrassingSituation,
	emotion.Joy:      emotion.GoodNews,
	emotion.Sadness:  emotion.BadNews,
	emotion.Anger:    emotion.Unfairness,
	emotion.Surprise: emotion.Unexpected,
	emotion.Longing:  emotion.RomanticWords,
}

// selectTrigger picks the one emotion trigger an interaction feeds the state
// machine, with its modifier. The first applicable source wins: direct cues,
// affection triggers, a long absence, context flags, then the strongest
// detected emotion. The empty trigger means decay.
func selectTrigger(a trigger.Analysis, ignored bool) (emotion.Trigger, float64) {
	if len(a.Cues) > 0 {
		return a.Cues[0], 1.0
	}
	for _, m := range a.Affection {
		if t, ok := affectionEmotion[m.Trigger]; ok {
			return t, m.Multiplier
		}
	}
	if ignored {
		return emotion.Ignored, 1.0
	}
	switch {
	case a.Context.Has(trigger.FirstMeeting):
		return emotion.FirstMeeting, 1.0
	case a.Context.Has(trigger.SpecialOccasion):
		return emotion.SpecialMoment, 1.0
	case a.Context.Has(trigger.Goodbye):
		return emotion.Farewell, 1.0
	}
	ranked := trigger.ApplyModifiers(a.Emotions, trigger.ContextEmotionModifiers(a.Context))
	if len(ranked) > 0 {
		top := ranked[0]
		if t, ok := candidateEmotion[top.Emotion]; ok {
			return t, 0.8 + 0.4*top.Confidence
		}
	}
	return "", 1.0
}
