package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Turn is one completed exchange: the user's message and the companion's reply.
type Turn struct {
	UserID      string    `json:"user_id"`
	UserMessage string    `json:"user_message"`
	BotReply    string    `json:"bot_reply"`
	Timestamp   time.Time `json:"timestamp"`
}

const maxLine = 1024 * 1024

// Write encodes turns as JSONL, one turn per line.
func Write(w io.Writer, turns []Turn) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, t := range turns {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encode turn %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes a JSONL stream of turns. Blank and malformed lines, and lines
// with an empty user message, are skipped and counted.
func Read(r io.Reader) (turns []Turn, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var t Turn
		if err := json.Unmarshal([]byte(line), &t); err != nil || t.UserMessage == "" {
			skipped++
			continue
		}
		turns = append(turns, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan transcript: %w", err)
	}
	return turns, skipped, nil
}
