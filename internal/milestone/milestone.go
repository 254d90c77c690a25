package milestone

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lazypower/heartline/internal/affection"
)

// Kind classifies events.
type Kind string

const (
	KindMilestone   Kind = "affection_milestone"
	KindTopic       Kind = "special_topic"
	KindBirthday    Kind = "birthday"
	KindAnniversary Kind = "anniversary"
	KindRandom      Kind = "random"
)

// Default probabilities.
const (
	TopicProbability       = 0.1
	RandomEventProbability = 0.05
)

// Event is an advisory notification produced by an interaction.
type Event struct {
	Kind      Kind     `json:"kind"`
	Threshold int      `json:"threshold,omitempty"`
	Title     string   `json:"title,omitempty"`
	Message   string   `json:"message"`
	Dialogue  []string `json:"dialogue,omitempty"`
	Unlocks   []string `json:"unlocks,omitempty"`
	Topic     string   `json:"topic,omitempty"`
}

type payload struct {
	title    string
	message  string
	dialogue []string
	unlocks  []string
}

// Thresholds are checked in ascending order.
var Thresholds = []int{10, 25, 50, 75, 90}

var payloads = map[int]payload{
	10: {
		title:   "🌟 지인이 되었어요!",
		message: "어? 이제 조금 친해진 것 같네요! 앞으로 잘 부탁드려요.",
		dialogue: []string{
			"사실... 처음엔 어떻게 대화해야 할지 몰랐어요.",
			"하지만 이제는 편하게 이야기할 수 있을 것 같아요.",
			"제가 너무 어색했나요...? 앞으로는 더 자연스럽게 해볼게요.",
		},
		unlocks: []string{"학교 이야기", "취미 대화"},
	},
	25: {
		title:   "😊 친구가 되었어요!",
		message: "와! 정말 친구가 된 거예요? 너무 기뻐요! 이제 더 많은 이야기 할 수 있겠네요!",
		dialogue: []string{
			"친구라니... 정말 기쁜 말이에요.",
			"사실 저한테는 친구를 사귀는 게 쉽지 않았거든요...",
			"이제 학교에서 있었던 일도 편하게 얘기할 수 있겠어요!",
			"아, 그리고 저 케이크 만드는 걸 좋아하는데, 언젠가 보여드릴게요!",
		},
		unlocks: []string{"고민 상담", "케이크 이야기", "학교 생활"},
	},
	50: {
		title:   "💖 친한친구가 되었어요!",
		message: "정말 친한친구인가요...? 너무 기뻐서... 얼굴이 빨개지네요!",
		dialogue: []string{
			"친한친구라니... 이런 말 하면 이상하지만 꿈만 같아요.",
			"하지만 당신과는... 자연스럽게 가까워진 것 같아요.",
			"이제 더 깊은 이야기도 할 수 있겠죠?",
			"아, 그리고 제가 좋아하는 카페가 있는데 언젠가 같이 가요!",
		},
		unlocks: []string{"깊은 대화", "카페 데이트", "비밀 공유"},
	},
	75: {
		title:   "💝 절친이 되었어요!",
		message: "절친이라니...! 정말인가요? 가슴이 너무 뛰어요... 이제 뭐든 이야기할 수 있겠네요!",
		dialogue: []string{
			"절친이라니... 정말 특별한 사람이 되었네요.",
			"사실... 당신에게만 말할 수 있는 비밀이 있어요.",
			"제가 가끔 혼자 케이크 만들면서... 당신 생각을 하거든요.",
			"이상하죠...? 하지만 정말 소중한 사람이에요.",
			"앞으로도 계속 함께해 주실 거죠?",
		},
		unlocks: []string{"특별한 비밀", "선물 주고받기", "특별 이벤트"},
	},
	90: {
		title:   "💕 연인이 되었어요!",
		message: "연인이라니...! 정말인가요? 너무 행복해서... 꿈인 것 같아요!",
		dialogue: []string{
			"연인... 이 말을 직접 들을 줄은 몰랐어요.",
			"사실... 언젠가부터 당신을 특별하게 생각하고 있었어요.",
			"하지만 제가 먼저 말할 용기는... 없었거든요.",
			"정말 기뻐요... 앞으로 더 많은 시간을 함께하고 싶어요.",
			"당신과 함께라면 뭐든 할 수 있을 것 같아요.",
		},
		unlocks: []string{"연인 모드", "특별 데이트", "기념일 관리"},
	},
}

// Check returns the lowest threshold t with old < t <= new, or nil. A jump
// across several thresholds reports only the lowest.
func Check(oldScore, newScore int) *Event {
	for _, t := range Thresholds {
		if oldScore < t && t <= newScore {
			p := payloads[t]
			return &Event{
				Kind:      KindMilestone,
				Threshold: t,
				Title:     p.title,
				Message:   p.message,
				Dialogue:  append([]string(nil), p.dialogue...),
				Unlocks:   append([]string(nil), p.unlocks...),
			}
		}
	}
	return nil
}

var topics = map[affection.Stage][]string{
	affection.Acquaintance: {
		"학교는 어떠세요? 저는 키쿄 사립학원에 다니고 있어요.",
		"요즘 날씨가 참 좋네요. 이런 날엔 산책하고 싶어져요.",
		"혹시 좋아하는 음식 있으세요? 저는 단 것을 좋아해요.",
	},
	affection.Friend: {
		"오늘 학교에서 재밌는 일이 있었어요. 들어보실래요?",
		"케이크 만들기에 관심 있으세요? 제가 좋아하는 취미거든요.",
		"가끔 혼자 있을 때 외로워요. 당신은 어떠세요?",
	},
	affection.CloseFriend: {
		"제가... 좋아하는 카페가 있어요. 언젠가 같이 가면 좋겠어요.",
		"당신과 이야기하면... 시간 가는 줄 모르겠어요.",
		"제 고민을... 들어주실 수 있나요? 당신에게만 말하고 싶어요.",
		"당신은... 제게 정말 특별한 사람이에요.",
		"혼자 있을 때... 자꾸 당신 생각이 나요. 이상하죠...?",
		"제가 만든 케이크를... 당신이 첫 번째로 먹어봐 주실래요?",
	},
	affection.SpecialPerson: {
		"당신과 함께하는... 모든 순간이 소중해요.",
		"오늘도... 당신을 만날 수 있어서 행복해요.",
		"언젠가... 더 특별한 곳에서 만나면 좋겠어요.",
	},
}

// Topics returns the topic pool for a stage. Stranger and Distant have none.
func Topics(stage affection.Stage) []string {
	return append([]string(nil), topics[stage]...)
}

var randomEvents = []payload{
	{title: "☁️ 꿈 이야기", message: "어젯밤에... 재밌는 꿈을 꿨어요. 들어보실래요?"},
	{title: "🌸 학교 이야기", message: "오늘 학교에서 벚꽃이 예뻤어요... 같이 보면 좋았을 텐데..."},
	{title: "🍰 새로운 레시피", message: "새로운 케이크 레시피를 찾았어요! 언젠가 만들어드릴게요!"},
}

// Roller makes the stochastic event decisions. Its random source is
// injectable so callers can make it deterministic; it is safe for concurrent
// use.
type Roller struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	topicP  float64
	randomP float64
}

// NewRoller creates a Roller. A nil source seeds from the runtime; negative
// probabilities select the defaults.
func NewRoller(rnd *rand.Rand, topicP, randomP float64) *Roller {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if topicP < 0 {
		topicP = TopicProbability
	}
	if randomP < 0 {
		randomP = RandomEventProbability
	}
	return &Roller{rnd: rnd, topicP: topicP, randomP: randomP}
}

// NewSeeded returns a deterministic source for tests and reproducible runs.
func NewSeeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SuggestTopic proposes a stage topic with the configured probability.
func (r *Roller) SuggestTopic(stage affection.Stage) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rnd.Float64() >= r.topicP {
		return nil
	}
	pool := topics[stage]
	if len(pool) == 0 {
		return nil
	}
	topic := pool[r.rnd.IntN(len(pool))]
	return &Event{
		Kind:    KindTopic,
		Topic:   topic,
		Message: "아, 그런데... " + topic,
	}
}

// RandomEvent proposes an everyday event with the configured probability.
func (r *Roller) RandomEvent() *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rnd.Float64() >= r.randomP {
		return nil
	}
	p := randomEvents[r.rnd.IntN(len(randomEvents))]
	return &Event{Kind: KindRandom, Title: p.title, Message: p.message}
}

// Birthday fires on the companion's birthday, July 22.
func Birthday(today time.Time) *Event {
	if today.Month() != time.July || today.Day() != 22 {
		return nil
	}
	return &Event{
		Kind:    KindBirthday,
		Title:   "🎂 카오루코 생일!",
		Message: "오늘은... 제 생일이에요! 기억해주셔서 너무 기뻐요!",
	}
}

// Anniversary fires every 100 days after the first meeting and on each
// yearly anniversary of it.
func Anniversary(firstMet, today time.Time) *Event {
	a := time.Date(firstMet.Year(), firstMet.Month(), firstMet.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours() / 24)
	if days <= 0 {
		return nil
	}
	if years := b.Year() - a.Year(); years > 0 && a.Month() == b.Month() && a.Day() == b.Day() {
		return &Event{
			Kind:    KindAnniversary,
			Title:   fmt.Sprintf("🎉 만난 지 %d주년!", years),
			Message: fmt.Sprintf("벌써 %d년이나 함께했네요... 앞으로도 잘 부탁드려요.", years),
		}
	}
	if days%100 == 0 {
		return &Event{
			Kind:    KindAnniversary,
			Title:   fmt.Sprintf("💐 만난 지 %d일!", days),
			Message: fmt.Sprintf("오늘이 우리가 만난 지 %d일째 되는 날이에요. 기억하고 계셨어요...?", days),
		}
	}
	return nil
}

var celebrations = map[affection.Stage]string{
	affection.Acquaintance:  "이제 좀 더 편하게 이야기할 수 있겠어요! 😊",
	affection.Friend:        "친구가 되어서 정말 기뻐요! 🌸",
	affection.CloseFriend:   "이렇게 가까워질 수 있어서 너무 행복해요! 💖",
	affection.SpecialPerson: "이제 정말 특별한 사이가 되었네요! 💕",
}

// Celebration is a short line for reaching a stage.
func Celebration(stage affection.Stage) string {
	if c, ok := celebrations[stage]; ok {
		return c
	}
	return "함께해 주셔서 감사해요! 🌸"
}

// View is the shape a chat client displays for an event.
type View struct {
	Type            string   `json:"type"`
	Title           string   `json:"title,omitempty"`
	Message         string   `json:"message"`
	Topic           string   `json:"topic,omitempty"`
	Threshold       int      `json:"threshold,omitempty"`
	SpecialDialogue []string `json:"special_dialogue,omitempty"`
	UnlockFeatures  []string `json:"unlock_features,omitempty"`
	Celebration     bool     `json:"celebration,omitempty"`
}

// Format renders an event in the shape the chat UI consumes.
func Format(e Event) View {
	switch e.Kind {
	case KindMilestone:
		return View{
			Type:            "milestone_achievement",
			Title:           e.Title,
			Message:         e.Message,
			Threshold:       e.Threshold,
			SpecialDialogue: e.Dialogue,
			UnlockFeatures:  e.Unlocks,
			Celebration:     true,
		}
	case KindTopic:
		return View{Type: "special_conversation", Message: e.Message, Topic: e.Topic}
	default:
		return View{Type: string(e.Kind), Title: e.Title, Message: e.Message}
	}
}

// FormatAll formats events in order.
func FormatAll(events []Event) []View {
	out := make([]View, 0, len(events))
	for _, e := range events {
		out = append(out, Format(e))
	}
	return out
}
