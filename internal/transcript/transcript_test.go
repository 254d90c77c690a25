package transcript

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func sampleTurns() []Turn {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []Turn{
		{UserID: "민수", UserMessage: "안녕!", BotReply: "어... 안녕하세요.", Timestamp: base},
		{UserID: "민수", UserMessage: "케이크 좋아해?", BotReply: "네! 정말 좋아해요!", Timestamp: base.Add(time.Minute)},
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleTurns()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}

	got, skipped, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d", skipped)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[1].UserMessage != "케이크 좋아해?" || !got[1].Timestamp.Equal(sampleTurns()[1].Timestamp) {
		t.Errorf("turn[1] = %+v", got[1])
	}
}

func TestReadSkipsMalformed(t *testing.T) {
	input := `{"user_id":"a","user_message":"hello","bot_reply":"hi"}

not json
{"user_id":"a","user_message":"","bot_reply":"orphan"}
{"user_id":"a","user_message":"again","bot_reply":"yes"}`

	got, skipped, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 turns, got %d", len(got))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestCondense(t *testing.T) {
	got := Condense(sampleTurns(), "민수", "카오루코")
	want := "최근 우리의 대화 내용:\n민수: 안녕!\n카오루코: 어... 안녕하세요.\n민수: 케이크 좋아해?\n카오루코: 네! 정말 좋아해요!"
	if got != want {
		t.Errorf("Condense =\n%s\nwant\n%s", got, want)
	}
	if Condense(nil, "a", "b") != "" {
		t.Error("empty history should condense to nothing")
	}
}

func TestCondenseTruncatesMiddleReplies(t *testing.T) {
	long := strings.Repeat("가", 300)
	turns := []Turn{
		{UserMessage: "1", BotReply: long},
		{UserMessage: "2", BotReply: long},
		{UserMessage: "3", BotReply: long},
	}
	out := Condense(turns, "u", "b")
	lines := strings.Split(out, "\n")
	// header, then u/b pairs
	if got := len([]rune(strings.TrimPrefix(lines[2], "b: "))); got != 300 {
		t.Errorf("first reply runes = %d, want 300", got)
	}
	if got := strings.TrimPrefix(lines[4], "b: "); got != strings.Repeat("가", 200)+"..." {
		t.Errorf("middle reply not truncated to 200 runes: %d", len([]rune(got)))
	}
	if got := len([]rune(strings.TrimPrefix(lines[6], "b: "))); got != 300 {
		t.Errorf("last reply runes = %d, want 300", got)
	}
}
