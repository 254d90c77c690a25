package affection

import "fmt"

// Score bounds.
const (
	MinScore = -100
	MaxScore = 100
)

// Stage is a named relationship tier derived from the affection score.
type Stage string

const (
	Distant       Stage = "distant"
	Stranger      Stage = "stranger"
	Acquaintance  Stage = "acquaintance"
	Friend        Stage = "friend"
	CloseFriend   Stage = "close_friend"
	SpecialPerson Stage = "special_person"
)

// StageInfo describes one tier of the relationship.
type StageInfo struct {
	Stage         Stage
	Min, Max      int
	Korean        string
	Description   string
	SpeechPattern string
	Unlocks       []string
	Honorific     string
}

// stages partition [MinScore, MaxScore] in ascending order with no gaps.
var stages = []StageInfo{
	{Distant, -100, -1, "멀어진사람", "거리를 두고 경계하는 상태", "짧고 단호한 표현", nil, ""},
	{Stranger, 0, 20, "낯선사람", "조심스럽고 격식있는 대화", "존댓말, 거리감 있음", nil, "님"},
	{Acquaintance, 21, 40, "지인", "조금씩 마음을 열기 시작", "여전히 존댓말이지만 친근함 증가", []string{"개인적인 이야기 공유"}, "님"},
	{Friend, 41, 60, "친구", "편안하고 자연스러운 대화", "가끔 반말, 농담도 함", []string{"고민상담", "일상 이야기"}, "씨"},
	{CloseFriend, 61, 80, "절친", "깊은 신뢰와 애정", "자연스러운 반말, 애교도 부림", []string{"비밀 이야기", "특별한 호칭"}, ""},
	{SpecialPerson, 81, 100, "특별한사람", "최고 단계의 친밀감", "완전히 편안함, 때로는 부끄러워함", []string{"연인 모드", "특별 이벤트"}, ""},
}

// Stages returns every stage in ascending score order.
func Stages() []StageInfo {
	out := make([]StageInfo, len(stages))
	copy(out, stages)
	return out
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// StageFor maps a score to its stage. Out-of-domain scores are clamped first,
// so the function is total.
func StageFor(score int) Stage {
	return infoFor(score).Stage
}

func infoFor(score int) StageInfo {
	score = Clamp(score)
	for _, s := range stages {
		if score >= s.Min && score <= s.Max {
			return s
		}
	}
	// unreachable while stages cover the domain
	return stages[1]
}

// Info returns the description of a stage. Unknown stages resolve to
// Stranger, the most conservative tier.
func Info(stage Stage) StageInfo {
	for _, s := range stages {
		if s.Stage == stage {
			return s
		}
	}
	return stages[1]
}

// Korean returns the display name of the stage.
func (s Stage) Korean() string {
	return Info(s).Korean
}

// Progress reports how far a score is through its stage, 0-100. Negative
// scores are measured against the whole negative range by absolute value,
// not against the Distant stage's width.
func Progress(score int) float64 {
	score = Clamp(score)
	if score < 0 {
		return float64(-score) / float64(-MinScore) * 100
	}
	info := infoFor(score)
	if info.Max == info.Min {
		return 100
	}
	return float64(score-info.Min) / float64(info.Max-info.Min) * 100
}

// Title returns how the companion addresses the user at the given score.
func Title(userName string, score int) string {
	info := infoFor(score)
	if info.Honorific != "" {
		return userName + info.Honorific
	}
	switch {
	case score >= 80:
		return userName
	case score >= 60:
		if hasFinalConsonant(userName) {
			return userName + "아"
		}
		return userName + "야"
	}
	return userName
}

// hasFinalConsonant reports whether the last rune is a Hangul syllable with a
// trailing consonant.
func hasFinalConsonant(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return false
	}
	last := r[len(r)-1]
	if last < 0xAC00 || last > 0xD7A3 {
		return false
	}
	return (last-0xAC00)%28 != 0
}

var stageUpMessages = map[Stage]string{
	Acquaintance:  "어... 조금씩 친해지는 것 같아요. 기쁘네요! 😊",
	Friend:        "이제 좀 더 편하게 얘기할 수 있을 것 같아요~ 친구가 된 것 같아서 기뻐요!",
	CloseFriend:   "우리 정말 친해졌네요! 이제 뭐든지 얘기할 수 있을 것 같아요~ 💕",
	SpecialPerson: "저... 저에게 이렇게 특별한 사람이 생길 줄 몰랐어요... 정말... 고마워요... 💖",
}

// StageUpMessage is what the companion says on reaching a stage.
func StageUpMessage(stage Stage) string {
	if m, ok := stageUpMessages[stage]; ok {
		return m
	}
	return "관계가 발전했어요!"
}

// Hearts renders the score as five hearts.
func Hearts(score int) string {
	n := Clamp(score)/20 + 1
	if score < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	out := ""
	for i := 0; i < 5; i++ {
		if i < n {
			out += "💖"
		} else {
			out += "🤍"
		}
	}
	return out
}

// Describe returns "<stage> (<score>/100)".
func Describe(score int) string {
	return fmt.Sprintf("%s (%d/100)", StageFor(score).Korean(), Clamp(score))
}
