package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lazypower/heartline/internal/client"
	"github.com/lazypower/heartline/internal/config"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/llm"
	"github.com/lazypower/heartline/internal/metrics"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/persona"
	"github.com/lazypower/heartline/internal/store"
	"github.com/lazypower/heartline/internal/store/redisstore"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured backend and describes where it lives.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (engine.Store, string, error) {
	switch cfg.Driver {
	case "redis":
		st, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, "", err
		}
		return st, fmt.Sprintf("redis://%s/%d (%s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix), nil
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			var err error
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, "", fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, path, nil
	default:
		return nil, "", fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

// newEngine wires an engine from config. A generator that cannot be created
// is reported and left out; chat then answers with fallback lines.
func newEngine(cfg config.Config, st engine.Store, m *metrics.Metrics) (*engine.Engine, error) {
	var gen llm.Client
	if c, err := llm.NewClient(cfg.LLM); err != nil {
		fmt.Fprintf(os.Stderr, "warning: generator not configured (%v), replies will use fallback lines\n", err)
	} else {
		gen = c
	}

	var roller *milestone.Roller
	if cfg.Engine.Seed != 0 {
		roller = milestone.NewRoller(milestone.NewSeeded(cfg.Engine.Seed), cfg.Engine.TopicProbability, cfg.Engine.RandomEventProbability)
	} else {
		roller = milestone.NewRoller(nil, cfg.Engine.TopicProbability, cfg.Engine.RandomEventProbability)
	}

	composer, err := persona.NewComposer(cfg.Engine.PromptCacheSize)
	if err != nil {
		return nil, err
	}

	return engine.New(st, engine.Options{
		Client:       gen,
		Roller:       roller,
		Composer:     composer,
		Metrics:      m,
		SessionIdle:  cfg.Engine.SessionIdle,
		HistoryTurns: cfg.Engine.HistoryTurns,
	})
}

// openEngine loads config, opens the store and builds an engine for local
// commands. The caller closes the engine.
func openEngine(ctx context.Context) (*engine.Engine, config.Config, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, "", err
	}
	st, where, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, cfg, "", err
	}
	eng, err := newEngine(cfg, st, nil)
	if err != nil {
		st.Close()
		return nil, cfg, "", err
	}
	return eng, cfg, where, nil
}

func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.BaseURL(), time.Duration(cfg.LLM.Timeout)*3*time.Second), nil
}
