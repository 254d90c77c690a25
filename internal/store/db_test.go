package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db := testDB(t)
	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "heartline.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Affection(ctx, "u", time.Now()); err != nil {
		t.Fatalf("Affection: %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	var n int
	if err := reopened.QueryRow("SELECT COUNT(*) FROM user_affection").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows after reopen = %d, want 1", n)
	}
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)
	tables := append([]string{"schema_versions"}, userTables...)
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestAffectionScoreConstraint(t *testing.T) {
	db := testDB(t)
	_, err := db.Exec(`INSERT INTO user_affection (user_id, score, first_met, last_interaction) VALUES ('u', 150, 0, 0)`)
	if err == nil {
		t.Error("expected error for out-of-range score, got nil")
	}
}

func TestEmotionLabelConstraint(t *testing.T) {
	db := testDB(t)
	_, err := db.Exec(`INSERT INTO user_emotion (user_id, emotion, intensity, updated_at) VALUES ('u', 'bored', 0.5, 0)`)
	if err == nil {
		t.Error("expected error for unknown emotion, got nil")
	}
}

func TestSaveAffectionClampsScore(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()
	s := &affection.State{UserID: "u", Score: 250, FirstMet: now, LastInteraction: now}
	if err := db.SaveAffection(ctx, s); err != nil {
		t.Fatalf("SaveAffection: %v", err)
	}
	got, err := db.Affection(ctx, "u", now)
	if err != nil {
		t.Fatalf("Affection: %v", err)
	}
	if got.Score != affection.MaxScore {
		t.Errorf("Score = %d, want %d", got.Score, affection.MaxScore)
	}
}

func TestAppendObservationClamps(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	o := emotion.Observation{UserID: "u", Emotion: emotion.Joy, Intensity: 42, Confidence: 3, Timestamp: time.Now()}
	if err := db.AppendObservation(ctx, o); err != nil {
		t.Fatalf("AppendObservation: %v", err)
	}
	obs, err := db.Observations(ctx, "u", 0)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(obs) != 1 || obs[0].Intensity != 10 || obs[0].Confidence != 1 {
		t.Errorf("observation = %+v", obs)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion after re-migrate = %d, want %d", v, len(migrations))
	}
}

func TestWALMode(t *testing.T) {
	db := testDB(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	// In-memory databases may use "memory" mode instead of WAL
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}
