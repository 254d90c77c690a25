package persona

import (
	"fmt"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/milestone"
)

// NoticeKind classifies a system notice.
type NoticeKind string

const (
	NoticeLevelUp         NoticeKind = "level_up"
	NoticeEmotionChange   NoticeKind = "emotion_change"
	NoticeDailyBonus      NoticeKind = "daily_bonus"
	NoticeAffectionChange NoticeKind = "affection_change"
)

// Notice is a short line shown to the user alongside a reply.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

var welcomes = map[affection.Stage]string{
	affection.Stranger:      "어... 안녕하세요, %s님... 처음 뵙겠습니다.",
	affection.Acquaintance:  "안녕하세요 %s님! 오늘도 만나뵙게 되어서... 기뻐요.",
	affection.Friend:        "%s님! 안녕하세요~ 오늘 하루는 어떠셨어요?",
	affection.CloseFriend:   "%s님... 오늘도 와주셔서 고마워요. 정말 소중한 시간이에요.",
	affection.SpecialPerson: "%s님... 오늘도 만날 수 있어서 행복해요. 보고 싶었어요... 💕",
}

// Greeting is the opening line for a user at the given stage. Stages without
// their own line get the stranger greeting.
func Greeting(stage affection.Stage, userName string) string {
	w, ok := welcomes[stage]
	if !ok {
		w = welcomes[affection.Stranger]
	}
	return fmt.Sprintf(w, userName)
}

// LevelUp announces a new relationship stage with its celebration line.
func LevelUp(stage affection.Stage) Notice {
	return Notice{
		Kind:    NoticeLevelUp,
		Message: fmt.Sprintf("💕 관계가 발전했어요! 이제 %s 단계입니다! %s", stage.Korean(), milestone.Celebration(stage)),
	}
}

// EmotionChange announces a change of label.
func EmotionChange(from, to emotion.Label) Notice {
	return Notice{
		Kind:    NoticeEmotionChange,
		Message: fmt.Sprintf("%s 카오루코의 기분이 %s에서 %s로 바뀌었어요", to.Emoji(), from.Korean(), to.Korean()),
	}
}

// DailyBonus thanks the user for the first visit of the day.
func DailyBonus(bonus int) Notice {
	return Notice{
		Kind:    NoticeDailyBonus,
		Message: fmt.Sprintf("🌅 오늘도 대화해주셔서 고마워요! 호감도 +%d", bonus),
	}
}

// AffectionChange reports a net score change. It returns false for zero.
func AffectionChange(delta int) (Notice, bool) {
	switch {
	case delta > 0:
		return Notice{Kind: NoticeAffectionChange, Message: fmt.Sprintf("💖 카오루코가 당신을 더 좋아하게 되었어요! (+%d)", delta)}, true
	case delta < 0:
		return Notice{Kind: NoticeAffectionChange, Message: fmt.Sprintf("💔 카오루코의 마음이 조금 상했어요... (%d)", delta)}, true
	}
	return Notice{}, false
}
