package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/transcript"
	"github.com/lazypower/heartline/internal/trigger"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), "heartline %s: %s", strings.Join(args, " "), out.String())
	return out.String()
}

// writeConfig points the database at a temp file and uses the offline
// generator.
func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "heartline.db")
	cfgPath = filepath.Join(dir, "heartline.yaml")
	body := "database:\n  path: " + dbPath + "\nllm:\n  provider: mock\n  gemini_key: AIzaSecretValue\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, dbPath
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "version"), "heartline "+Version)
}

func TestAnalyzeJSON(t *testing.T) {
	out := run(t, "analyze", "--json", "진짜", "귀여워?")
	var a trigger.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	require.Len(t, a.Affection, 1)
	assert.Equal(t, 1.5, a.Affection[0].Multiplier)
	assert.True(t, a.Context.Has(trigger.Question))
}

func TestConfigShowMasksKeys(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	out := run(t, "--config", cfgPath, "config", "show")
	assert.Contains(t, out, "provider: mock")
	assert.Contains(t, out, dbPath)
	assert.Contains(t, out, "AIza****")
	assert.NotContains(t, out, "SecretValue")
}

func TestExportImport(t *testing.T) {
	cfgPath, dbPath := writeConfig(t)
	ctx := context.Background()

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, msg := range []string{"안녕", "귀여워"} {
		require.NoError(t, db.AppendTurn(ctx, transcript.Turn{
			UserID: "u", UserMessage: msg, BotReply: "네", Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, db.Close())

	outPath := filepath.Join(t.TempDir(), "u.jsonl")
	run(t, "--config", cfgPath, "export", "-u", "u", "-o", outPath)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	out := run(t, "--config", cfgPath, "import", outPath, "-u", "copy")
	assert.Contains(t, out, "imported 2 turns")

	db, err = store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	turns, err := db.RecentTurns(ctx, "copy", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "안녕", turns[0].UserMessage)
}

func testMCPSession(t *testing.T, gen llm.Client) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	eng, err := engine.New(db, engine.Options{
		Client: gen,
		Roller: milestone.NewRoller(milestone.NewSeeded(1), 0, 0),
	})
	require.NoError(t, err)

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := newMCPServer(eng).Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestMCPTools(t *testing.T) {
	cs := testMCPSession(t, &llm.MockClient{Response: &llm.Response{Content: "헤헤"}})

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"detect_triggers", "relationship_status", "compose_persona", "reset_user", "chat"}, names)

	out := callText(t, cs, "detect_triggers", map[string]any{"message": "귀여워"})
	assert.Contains(t, out, `"compliment"`)

	out = callText(t, cs, "chat", map[string]any{"user_id": "u", "message": "귀여워"})
	assert.Contains(t, out, `"reply": "헤헤"`)

	out = callText(t, cs, "relationship_status", map[string]any{"user_id": "u", "name": "민수"})
	assert.Contains(t, out, `"affection_score": 3`)
	assert.Contains(t, out, `"title": "민수님"`)

	out = callText(t, cs, "compose_persona", map[string]any{"user_id": "u"})
	assert.Contains(t, out, "호감도 3/100")

	out = callText(t, cs, "reset_user", map[string]any{"user_id": "u"})
	assert.Contains(t, out, `"status": "reset"`)
}

func TestMCPToolFailuresAreFlagged(t *testing.T) {
	cs := testMCPSession(t, &llm.MockClient{Response: &llm.Response{Content: "헤헤"}})
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "reset_user", Arguments: map[string]any{"user_id": " "}})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "chat", Arguments: map[string]any{"user_id": "u", "message": ""}})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "detect_triggers", Arguments: map[string]any{"message": "안녕"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestPrintStatusAndEvents(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &engine.Status{Title: "민수님", Score: 30, Hearts: "💖💖🤍🤍🤍"})
	assert.Contains(t, buf.String(), "민수님 | "+affection.Describe(30))

	buf.Reset()
	printEvents(&buf, milestone.FormatAll([]milestone.Event{*milestone.Check(0, 10)}))
	out := buf.String()
	assert.Contains(t, out, "🌟 지인이 되었어요!")
	assert.Contains(t, out, "🔓 학교 이야기, 취미 대화")
}

func TestMCPChatNeedsGenerator(t *testing.T) {
	cs := testMCPSession(t, nil)
	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	for _, tool := range tools.Tools {
		assert.NotEqual(t, "chat", tool.Name)
	}
}
