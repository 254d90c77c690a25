package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		emotion   emotion.Label
		intensity int
		conf      float64
	}{
		{"plain", `{"emotion":"기쁨","intensity":8,"reason":"칭찬","confidence":0.9}`, emotion.Joy, 8, 0.9},
		{"fenced", "```json\n{\"emotion\":\"설렘\",\"intensity\":6,\"reason\":\"r\",\"confidence\":0.7}\n```", emotion.Longing, 6, 0.7},
		{"prose around", `분석 결과: {"emotion": "sadness", "intensity": 3, "reason": "r", "confidence": 0.6} 입니다`, emotion.Sadness, 3, 0.6},
		{"unknown emotion", `{"emotion":"지루함","intensity":5,"reason":"r","confidence":0.5}`, emotion.Bashful, 5, 0.5},
		{"clamped", `{"emotion":"화남","intensity":15,"reason":"r","confidence":1.7}`, emotion.Anger, 10, 1},
		{"below range", `{"emotion":"놀람","intensity":-2,"reason":"r","confidence":-0.1}`, emotion.Surprise, 1, 0},
		{"string numbers", `{"emotion":"joy","intensity":"7","reason":"r","confidence":"0.4"}`, emotion.Joy, 7, 0.4},
		{"missing fields", `{"emotion":"joy"}`, emotion.Joy, 5, 0.8},
		{"trailing comma", `{"emotion":"기쁨","intensity":9,"reason":"r","confidence":0.9,}`, emotion.Joy, 9, 0.9},
		{"single quotes", `{'emotion': '기쁨', 'intensity': 4, 'reason': 'r', 'confidence': 0.3}`, emotion.Joy, 4, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := Parse(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.emotion, obs.Emotion)
			assert.Equal(t, tt.intensity, obs.Intensity)
			assert.InDelta(t, tt.conf, obs.Confidence, 1e-9)
		})
	}
}

func TestParseNoObject(t *testing.T) {
	_, err := Parse("I cannot answer that")
	assert.Error(t, err)
}

func TestAnalyzeSuccess(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: `{"emotion":"수줍음","intensity":7,"reason":"칭찬받음","confidence":0.85}`}}
	a := New(mock, clock)

	obs := a.Analyze(context.Background(), "민수", "귀여워", "어... 고마워요", "민수")
	assert.Equal(t, emotion.Bashful, obs.Emotion)
	assert.Equal(t, 7, obs.Intensity)
	assert.Equal(t, "칭찬받음", obs.Reason)
	assert.Equal(t, "민수", obs.UserID)
	assert.Equal(t, fixed, obs.Timestamp)
	require.Len(t, mock.Calls, 1)
	assert.Contains(t, mock.Calls[0], "귀여워")
}

func TestAnalyzeFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
	}{
		{"no client", nil},
		{"generator error", &llm.MockClient{Err: errors.New("quota")}},
		{"nil response", &llm.MockClient{}},
		{"garbage", &llm.MockClient{Response: &llm.Response{Content: "no json here"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := New(tt.client, clock).Analyze(context.Background(), "u", "m", "r", "u")
			assert.Equal(t, Default("u", fixed), obs)
		})
	}
}

func TestSummarize(t *testing.T) {
	obs := func(l emotion.Label) emotion.Observation { return emotion.Observation{Emotion: l} }
	s := Summarize([]emotion.Observation{obs(emotion.Joy), obs(emotion.Joy), obs(emotion.Sadness)})
	assert.Equal(t, emotion.Joy, s.Dominant)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 66.7, s.Distribution[emotion.Joy])
	assert.Equal(t, 33.3, s.Distribution[emotion.Sadness])
	_, ok := s.Distribution[emotion.Anger]
	assert.False(t, ok)
}

func TestSummarizeTiesAndEmpty(t *testing.T) {
	empty := Summarize(nil)
	assert.Equal(t, emotion.Bashful, empty.Dominant)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Distribution)

	tie := Summarize([]emotion.Observation{{Emotion: emotion.Longing}, {Emotion: emotion.Joy}})
	assert.Equal(t, emotion.Joy, tie.Dominant, "ties resolve in declaration order")
}
