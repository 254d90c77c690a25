package transcript

import (
	"strings"
)

const (
	firstLastReplyMax = 1000
	midReplyMax       = 200
)

// Header introduces the condensed conversation in the generator prompt.
const Header = "최근 우리의 대화 내용:"

// Condense renders recent turns, oldest first, as the conversation context
// for the generator. User messages are kept whole. The first and last
// replies keep up to 1000 characters and the ones between up to 200.
func Condense(turns []Turn, userName, botName string) string {
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for i, t := range turns {
		limit := midReplyMax
		if i == 0 || i == len(turns)-1 {
			limit = firstLastReplyMax
		}
		b.WriteString(userName)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(t.UserMessage))
		b.WriteString("\n")
		b.WriteString(botName)
		b.WriteString(": ")
		b.WriteString(truncate(strings.TrimSpace(t.BotReply), limit))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// truncate cuts s to n runes so multi-byte text is never split.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
