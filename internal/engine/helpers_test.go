package engine

import (
	"testing"
	"time"

	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEngine wires an engine with a fixed clock and the given mock.
func testEngine(t *testing.T, db *store.DB, mock *llm.MockClient) *Engine {
	t.Helper()
	e := New(db, mock)
	e.Now = func() time.Time { return fixedNow }
	return e
}

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// daysAgo returns a unix-millis timestamp n days before the fixed clock.
func daysAgo(n float64) int64 {
	return fixedNow.Add(-time.Duration(n * float64(24*time.Hour))).UnixMilli()
}

func seedMemory(t *testing.T, db *store.DB, m *store.Memory, createdDaysAgo float64) *store.Memory {
	t.Helper()
	if err := db.CreateMemory(m); err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	if createdDaysAgo > 0 {
		if _, err := db.Exec("UPDATE memories SET created_at = ? WHERE id = ?", daysAgo(createdDaysAgo), m.ID); err != nil {
			t.Fatalf("age memory: %v", err)
		}
		m.CreatedAt = daysAgo(createdDaysAgo)
	}
	return m
}
