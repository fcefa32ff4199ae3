package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if CAPTIONFORGE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("CAPTIONFORGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CAPTIONFORGE_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestPG creates a fresh [PGStore] with an empty artifact table.
func newTestPG(t *testing.T) *PGStore {
	t.Helper()
	ctx := context.Background()

	s, err := NewPG(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("NewPG: %v", err)
	}
	t.Cleanup(s.Close)

	if _, err := s.pool.Exec(ctx, "TRUNCATE stage_artifacts"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestPGStore_RoundTrip(t *testing.T) {
	s := newTestPG(t)
	ctx := context.Background()
	col := testCollection(t)

	if err := s.Save(ctx, col.Source, "transcribe", col); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := s.Load(ctx, col.Source, "transcribe")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Len() != 1 || back.Segments[0].Text != "hello world" {
		t.Errorf("round trip lost data: %+v", back)
	}
}

func TestPGStore_LoadMissing(t *testing.T) {
	s := newTestPG(t)

	_, err := s.Load(context.Background(), "/media/clip.mp4", "correct")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPGStore_UpsertAndStages(t *testing.T) {
	s := newTestPG(t)
	ctx := context.Background()
	col := testCollection(t)

	if err := s.Save(ctx, col.Source, "transcribe", col); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, col.Source, "correct", col); err != nil {
		t.Fatalf("Save: %v", err)
	}

	col.Segments[0].Text = "updated"
	if err := s.Save(ctx, col.Source, "transcribe", col); err != nil {
		t.Fatalf("Save upsert: %v", err)
	}

	back, err := s.Load(ctx, col.Source, "transcribe")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Segments[0].Text != "updated" {
		t.Errorf("text = %q, want updated", back.Segments[0].Text)
	}

	stages, err := s.Stages(ctx, col.Source)
	if err != nil {
		t.Fatalf("Stages: %v", err)
	}
	// The upsert bumped transcribe's updated_at past correct's.
	if len(stages) != 2 || stages[len(stages)-1] != "transcribe" {
		t.Errorf("stages = %v, want transcribe last", stages)
	}
}
