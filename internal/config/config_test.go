package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 30*time.Minute, cfg.Engine.SessionIdle)
	assert.Equal(t, 5, cfg.Engine.HistoryTurns)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heartline.yaml")
	body := `server:
  port: 9000
llm:
  provider: ollama
engine:
  session_idle: 10m
  topic_probability: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("HEARTLINE_LLM_MODEL", "llama3.2")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	assert.Equal(t, "g-key", cfg.LLM.GeminiKey)
	assert.Equal(t, 10*time.Minute, cfg.Engine.SessionIdle)
	assert.Equal(t, 0.5, cfg.Engine.TopicProbability)
	assert.Equal(t, 0.05, cfg.Engine.RandomEventProbability)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestYAMLMasksKeys(t *testing.T) {
	cfg := Default()
	cfg.LLM.GeminiKey = "AIzaSecretValue"
	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "AIza****")
	assert.NotContains(t, string(out), "SecretValue")
	assert.Contains(t, string(out), "provider: gemini")
}

func TestAddresses(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:37778", cfg.ListenAddr())
	assert.Equal(t, "http://127.0.0.1:37778", cfg.BaseURL())
	cfg.Server.URL = "http://example.test/"
	assert.Equal(t, "http://example.test", cfg.BaseURL())
}
