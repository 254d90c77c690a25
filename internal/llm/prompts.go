package llm

import (
	"fmt"
	"strings"

	"github.com/lazypower/heartline/internal/emotion"
)

// DefaultUserName stands in for an anonymous user.
const DefaultUserName = "사용자"

// ReplyPrompt assembles the generator prompt: the composed persona
// instruction, the condensed recent conversation, and the new message.
func ReplyPrompt(instruction, history, userName, message string) string {
	if userName == "" {
		userName = DefaultUserName
	}
	var b strings.Builder
	b.WriteString(instruction)
	fmt.Fprintf(&b, "\n\n상대방의 이름은 '%s'입니다. 대화할 때 이름을 자연스럽게 사용해주세요.", userName)
	if history != "" {
		b.WriteString("\n\n")
		b.WriteString(history)
	}
	fmt.Fprintf(&b, "\n\n%s의 새 메시지: %s\n\n카오루코로서 답변해줘:", userName, message)
	return b.String()
}

// EmotionAnalysisPrompt asks the generator to classify the companion's
// emotion after an exchange. The answer must be a single JSON object.
func EmotionAnalysisPrompt(userMessage, reply, userName string) string {
	if userName == "" {
		userName = DefaultUserName
	}
	names := make([]string, 0, len(emotion.Labels))
	for _, l := range emotion.Labels {
		names = append(names, fmt.Sprintf("%s(%s)", l.Korean(), l.Emoji()))
	}
	return fmt.Sprintf(`다음은 와구리 카오루코(수줍은 고등학생 캐릭터)와 %s님의 대화입니다.

사용자 메시지: %q
카오루코 답변: %q

카오루코의 현재 감정을 다음 6가지 중에서 분석해주세요:
%s

다음 JSON 형식으로만 답변해주세요:
{
    "emotion": "감정이름",
    "intensity": 강도(1-10),
    "reason": "감정선택이유",
    "confidence": 확신도(0.0-1.0)
}

카오루코는 단데레 타입으로 쉽게 부끄러워하고, 칭찬받으면 수줍어하며,
친밀해질수록 설레는 반응을 보입니다.`, userName, userMessage, reply, strings.Join(names, ", "))
}
