package emotion

import (
	"math"
	"strings"
	"time"
)

// Label is one of the six emotions the companion can be in.
type Label string

const (
	Bashful  Label = "bashful"
	Joy      Label = "joy"
	Sadness  Label = "sadness"
	Anger    Label = "anger"
	Surprise Label = "surprise"
	Longing  Label = "longing"
)

// Default is the emotion used for new users and for any unrecognized label.
const Default = Bashful

// DefaultIntensity is the starting intensity for new users.
const DefaultIntensity = 0.5

const (
	decayFactor  = 0.9
	intensityMin = 0.1
)

// Labels lists every emotion in declaration order. Ties during ranking and
// trigger lookups resolve in this order.
var Labels = []Label{Bashful, Joy, Sadness, Anger, Surprise, Longing}

// Definition describes an emotion: its allowed intensity range, the triggers
// that switch into it and how it is presented.
type Definition struct {
	Label       Label
	Korean      string
	Min, Max    float64
	Triggers    []Trigger
	Responses   []string
	Emoji       string
	Color       string
	Description string
}

var definitions = map[Label]Definition{
	Bashful: {
		Label: Bashful, Korean: "수줍음", Min: 0.3, Max: 0.8,
		Triggers:    []Trigger{Compliment, AffectionExpression, FirstMeeting, EmbarrassingSituation},
		Responses:   []string{"어, 어... 그런가요?", "부끄러워요...", "///", "그런 말씀 하시면..."},
		Emoji:       "😳",
		Color:       "#ffb3d9",
		Description: "부끄러워하거나 수줍어하는 상태",
	},
	Joy: {
		Label: Joy, Korean: "기쁨", Min: 0.4, Max: 1.0,
		Triggers:    []Trigger{GoodNews, Gift, Compliment, Success, FunnyStory},
		Responses:   []string{"정말 기뻐요!", "와... 고마워요!", "😊", "너무 좋아요!"},
		Emoji:       "😊",
		Color:       "#ffd700",
		Description: "행복하고 즐거운 상태",
	},
	Sadness: {
		Label: Sadness, Korean: "슬픔", Min: 0.2, Max: 0.7,
		Triggers:    []Trigger{BadNews, Rejection, Farewell, Disappointment, Loneliness},
		Responses:   []string{"조금... 슬퍼요", "흑... 😢", "괜찮다고 하지만...", "마음이 아파요"},
		Emoji:       "😢",
		Color:       "#87ceeb",
		Description: "슬프거나 우울한 상태",
	},
	Anger: {
		Label: Anger, Korean: "화남", Min: 0.3, Max: 0.8,
		Triggers:    []Trigger{Rudeness, BrokenPromise, Ignored, Unfairness, Insult},
		Responses:   []string{"좀... 화가 나요", "그건 아니라고 생각해요", "😤", "너무해요..."},
		Emoji:       "😤",
		Color:       "#ff6b6b",
		Description: "화나거나 짜증나는 상태",
	},
	Surprise: {
		Label: Surprise, Korean: "놀람", Min: 0.5, Max: 1.0,
		Triggers:    []Trigger{Unexpected, SurpriseEvent, NewInformation, SurpriseTrigger},
		Responses:   []string{"어?! 정말요?", "깜짝이야...", "😲", "예상하지 못했어요!"},
		Emoji:       "😲",
		Color:       "#98fb98",
		Description: "놀라거나 당황한 상태",
	},
	Longing: {
		Label: Longing, Korean: "설렘", Min: 0.4, Max: 1.0,
		Triggers:    []Trigger{DateProposal, RomanticWords, SpecialMoment, Confession, Gift},
		Responses:   []string{"심장이... 두근거려요", "어떡하죠... 💕", "기대돼요!", "정말... 정말요?"},
		Emoji:       "💕",
		Color:       "#ff69b4",
		Description: "설레거나 두근거리는 상태",
	},
}

// Lookup returns the definition for a label. Unknown labels resolve to the
// default emotion's definition and ok=false.
func Lookup(l Label) (Definition, bool) {
	d, ok := definitions[l]
	if !ok {
		return definitions[Default], false
	}
	return d, true
}

// Valid reports whether l is one of the six defined emotions.
func (l Label) Valid() bool {
	_, ok := definitions[l]
	return ok
}

// Korean returns the Korean display name of the emotion.
func (l Label) Korean() string {
	d, _ := Lookup(l)
	return d.Korean
}

// Emoji returns the display emoji of the emotion.
func (l Label) Emoji() string {
	d, _ := Lookup(l)
	return d.Emoji
}

// Parse accepts an English or Korean emotion name. Anything else resolves to
// the default emotion.
func Parse(s string) Label {
	s = strings.TrimSpace(s)
	if l := Label(strings.ToLower(s)); l.Valid() {
		return l
	}
	for _, l := range Labels {
		if definitions[l].Korean == s {
			return l
		}
	}
	return Default
}

// State is the persisted emotion of a user. Intensity is always in [0,1].
type State struct {
	UserID    string    `json:"user_id"`
	Emotion   Label     `json:"emotion"`
	Intensity float64   `json:"intensity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize resolves unknown labels and out-of-range intensities to defined
// values.
func (s *State) Normalize() {
	if !s.Emotion.Valid() {
		s.Emotion = Default
	}
	s.Intensity = clamp(s.Intensity, 0, 1)
}

// Observation is an append-only record produced by the analysis pass over a
// finished turn. Intensity uses the 1-10 scale.
type Observation struct {
	UserID     string    `json:"user_id"`
	Emotion    Label     `json:"emotion"`
	Intensity  int       `json:"intensity"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// FromScale10 converts an analysis intensity (1-10) to the canonical [0,1]
// scale. Out-of-range input is clamped first.
func FromScale10(n int) float64 {
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	return float64(n-1) / 9
}

// ToScale10 converts a canonical intensity to the 1-10 display scale.
func ToScale10(f float64) int {
	return 1 + int(math.Round(clamp(f, 0, 1)*9))
}

// Response picks a sample line for the emotion: the strongest line above 0.7,
// the middle line above 0.4, the mildest otherwise.
func Response(l Label, intensity float64) string {
	d, ok := Lookup(l)
	if !ok || len(d.Responses) == 0 {
		return "..."
	}
	switch {
	case intensity > 0.7:
		return d.Responses[len(d.Responses)-1]
	case intensity > 0.4:
		return d.Responses[len(d.Responses)/2]
	default:
		return d.Responses[0]
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
