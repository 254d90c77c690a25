package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all heartline configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind" yaml:"bind"`
	Port int    `mapstructure:"port" yaml:"port"`
	URL  string `mapstructure:"url" yaml:"url"` // used by CLI client commands
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "redis"
	Path        string `mapstructure:"path" yaml:"path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB     int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

type LLMConfig struct {
	Provider     string `mapstructure:"provider" yaml:"provider"` // "gemini", "anthropic", "ollama", "mock"
	Model        string `mapstructure:"model" yaml:"model"`
	GeminiKey    string `mapstructure:"gemini_key" yaml:"gemini_key"`
	AnthropicKey string `mapstructure:"anthropic_key" yaml:"anthropic_key"`
	OllamaURL    string `mapstructure:"ollama_url" yaml:"ollama_url"`
	OllamaModel  string `mapstructure:"ollama_model" yaml:"ollama_model"`
	Timeout      int    `mapstructure:"timeout" yaml:"timeout"` // seconds
}

type EngineConfig struct {
	SessionIdle            time.Duration `mapstructure:"session_idle" yaml:"session_idle"`
	TopicProbability       float64       `mapstructure:"topic_probability" yaml:"topic_probability"`
	RandomEventProbability float64       `mapstructure:"random_event_probability" yaml:"random_event_probability"`
	HistoryTurns           int           `mapstructure:"history_turns" yaml:"history_turns"`
	PromptCacheSize        int           `mapstructure:"prompt_cache_size" yaml:"prompt_cache_size"`
	Seed                   uint64        `mapstructure:"seed" yaml:"seed"` // 0 seeds from the runtime
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Driver:      "sqlite",
			Path:        "", // resolved at runtime via store.DefaultDBPath()
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "heartline",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  30,
		},
		Engine: EngineConfig{
			SessionIdle:            30 * time.Minute,
			TopicProbability:       0.1,
			RandomEventProbability: 0.05,
			HistoryTurns:           5,
			PromptCacheSize:        256,
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// BaseURL is the address client commands talk to.
func (c *Config) BaseURL() string {
	if c.Server.URL != "" {
		return strings.TrimRight(c.Server.URL, "/")
	}
	return fmt.Sprintf("http://%s:%d", c.Server.Bind, c.Server.Port)
}

// Load reads configuration from path, or from heartline.yaml in the working
// directory or ~/.heartline when path is empty. A missing file is not an
// error. HEARTLINE_* environment variables override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("heartline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.heartline")
	}

	v.SetEnvPrefix("HEARTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return cfg, nil
}

// YAML renders the config for `heartline config show`. Keys are masked.
func (c Config) YAML() ([]byte, error) {
	masked := c
	masked.LLM.GeminiKey = mask(c.LLM.GeminiKey)
	masked.LLM.AnthropicKey = mask(c.LLM.AnthropicKey)
	out, err := yaml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// never appear in a file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.redis_addr", d.Database.RedisAddr)
	v.SetDefault("database.redis_db", d.Database.RedisDB)
	v.SetDefault("database.redis_prefix", d.Database.RedisPrefix)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.gemini_key", d.LLM.GeminiKey)
	v.SetDefault("llm.anthropic_key", d.LLM.AnthropicKey)
	v.SetDefault("llm.ollama_url", d.LLM.OllamaURL)
	v.SetDefault("llm.ollama_model", d.LLM.OllamaModel)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("engine.session_idle", d.Engine.SessionIdle)
	v.SetDefault("engine.topic_probability", d.Engine.TopicProbability)
	v.SetDefault("engine.random_event_probability", d.Engine.RandomEventProbability)
	v.SetDefault("engine.history_turns", d.Engine.HistoryTurns)
	v.SetDefault("engine.prompt_cache_size", d.Engine.PromptCacheSize)
	v.SetDefault("engine.seed", d.Engine.Seed)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
