package analysis

import (
	"math"

	"github.com/lazypower/heartline/internal/emotion"
)

// Stats summarizes a user's observation history.
type Stats struct {
	Dominant     emotion.Label             `json:"dominant_emotion"`
	Distribution map[emotion.Label]float64 `json:"emotion_distribution"`
	Counts       map[emotion.Label]int     `json:"counts"`
	Total        int                       `json:"total_interactions"`
}

// Summarize computes the dominant emotion and the percentage distribution,
// rounded to one decimal. Ties go to the earlier label in declaration order.
// An empty history is dominated by the default emotion.
func Summarize(history []emotion.Observation) Stats {
	s := Stats{
		Dominant:     emotion.Default,
		Distribution: map[emotion.Label]float64{},
		Counts:       map[emotion.Label]int{},
	}
	for _, o := range history {
		l := o.Emotion
		if !l.Valid() {
			l = emotion.Default
		}
		s.Counts[l]++
		s.Total++
	}
	if s.Total == 0 {
		return s
	}

	best := -1
	for _, l := range emotion.Labels {
		n := s.Counts[l]
		if n == 0 {
			continue
		}
		s.Distribution[l] = math.Round(float64(n)/float64(s.Total)*1000) / 10
		if n > best {
			best = n
			s.Dominant = l
		}
	}
	return s
}
