package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/llm"
)

// Defaults substituted when analysis fails or fields are missing.
const (
	DefaultIntensity  = 5
	DefaultConfidence = 0.5
	DefaultReason     = "기본 상태"

	missingConfidence = 0.8
)

// Analyzer classifies the companion's emotion after an exchange using the
// generator. It never fails: any error yields the default observation.
type Analyzer struct {
	client llm.Client
	now    func() time.Time
}

// New creates an Analyzer. A nil client makes every analysis the default.
func New(client llm.Client, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{client: client, now: now}
}

// Default is the observation used when analysis is unavailable.
func Default(userID string, at time.Time) emotion.Observation {
	return emotion.Observation{
		UserID:     userID,
		Emotion:    emotion.Default,
		Intensity:  DefaultIntensity,
		Reason:     DefaultReason,
		Confidence: DefaultConfidence,
		Timestamp:  at,
	}
}

// Analyze asks the generator for the emotion shown in reply.
func (a *Analyzer) Analyze(ctx context.Context, userID, userMessage, reply, userName string) emotion.Observation {
	at := a.now()
	if a.client == nil {
		return Default(userID, at)
	}

	resp, err := a.client.Complete(ctx, llm.EmotionAnalysisPrompt(userMessage, reply, userName))
	if err != nil {
		log.Printf("analysis: generator failed for %s: %v", userID, err)
		return Default(userID, at)
	}
	if resp == nil {
		log.Printf("analysis: empty response for %s", userID)
		return Default(userID, at)
	}

	obs, err := Parse(resp.Content)
	if err != nil {
		log.Printf("analysis: %v", err)
		return Default(userID, at)
	}
	obs.UserID = userID
	obs.Timestamp = at
	return obs
}

type rawObservation struct {
	Emotion    string      `json:"emotion"`
	Intensity  json.Number `json:"intensity"`
	Reason     string      `json:"reason"`
	Confidence json.Number `json:"confidence"`
}

// Parse extracts and validates an observation from a generator response.
// The response may be wrapped in code fences or prose and may be slightly
// malformed JSON.
func Parse(content string) (emotion.Observation, error) {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 {
		return emotion.Observation{}, fmt.Errorf("no JSON object found in response")
	}
	if end <= start {
		// unterminated object; let the repair pass close it
		end = len(content) - 1
	}
	jsonStr := content[start : end+1]

	var raw rawObservation
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(jsonStr)
		if rerr != nil {
			return emotion.Observation{}, fmt.Errorf("repair analysis json: %w", rerr)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return emotion.Observation{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}

	return validate(raw), nil
}

// validate coerces a raw observation into range: unknown emotions become
// bashful, intensity is clamped to 1..10 and confidence to [0,1].
func validate(raw rawObservation) emotion.Observation {
	obs := emotion.Observation{
		Emotion:    emotion.Parse(raw.Emotion),
		Intensity:  DefaultIntensity,
		Reason:     strings.TrimSpace(raw.Reason),
		Confidence: missingConfidence,
	}
	if f, err := raw.Intensity.Float64(); err == nil {
		obs.Intensity = clampInt(int(f+0.5), 1, 10)
		if f < 0 {
			obs.Intensity = 1
		}
	}
	if f, err := raw.Confidence.Float64(); err == nil {
		obs.Confidence = clampFloat(f, 0, 1)
	}
	return obs
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
