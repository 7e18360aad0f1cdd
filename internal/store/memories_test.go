package store

import (
	"testing"
	"time"
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

func mustCreate(t *testing.T, db *DB, m *Memory) *Memory {
	t.Helper()
	if err := db.CreateMemory(m); err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	return m
}

func TestCreateAndGetMemory(t *testing.T) {
	db := testDB(t)

	m := mustCreate(t, db, &Memory{
		Content:       "Always run the linter before committing",
		Keywords:      "linter,commit,workflow",
		Context:       "stated during code review discussion",
		Importance:    0.85,
		MemoryType:    TypeCore,
		MemorySubtype: "instruction",
		IsPinned:      true,
	})

	if m.ID <= 0 {
		t.Fatalf("expected positive id, got %d", m.ID)
	}
	if m.ImportanceLevel != LevelImportant {
		t.Errorf("importance_level = %q, want important", m.ImportanceLevel)
	}

	got, err := db.GetMemory(m.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got == nil {
		t.Fatal("expected memory, got nil")
	}
	if got.Content != m.Content || got.MemoryType != TypeCore || !got.IsPinned {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.LastAccessed != nil {
		t.Errorf("expected nil last_accessed on creation, got %d", *got.LastAccessed)
	}
}

func TestGetMemoryNotFound(t *testing.T) {
	db := testDB(t)
	got, err := db.GetMemory(9999)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing memory, got %+v", got)
	}
}

func TestImportanceClampAndLevels(t *testing.T) {
	db := testDB(t)

	tests := []struct {
		importance float64
		wantImp    float64
		wantLevel  string
	}{
		{1.5, 1.0, LevelImportant},
		{0.7, 0.7, LevelImportant},
		{0.5, 0.5, LevelModerate},
		{0.4, 0.4, LevelModerate},
		{0.2, 0.2, LevelUnimportant},
		{0.0, 0.1, LevelUnimportant},
	}

	for _, tt := range tests {
		m := mustCreate(t, db, &Memory{Content: "x", Importance: tt.importance})
		if m.Importance != tt.wantImp {
			t.Errorf("importance %v: clamped to %v, want %v", tt.importance, m.Importance, tt.wantImp)
		}
		if m.ImportanceLevel != tt.wantLevel {
			t.Errorf("importance %v: level %q, want %q", tt.importance, m.ImportanceLevel, tt.wantLevel)
		}
	}
}

func TestDeleteMemoryCascadesRelations(t *testing.T) {
	db := testDB(t)

	a := mustCreate(t, db, &Memory{Content: "memory a", Importance: 0.5})
	b := mustCreate(t, db, &Memory{Content: "memory b", Importance: 0.5})
	c := mustCreate(t, db, &Memory{Content: "memory c", Importance: 0.5})

	if _, err := db.CreateRelation(a.ID, b.ID, 0.8); err != nil {
		t.Fatalf("CreateRelation: %v", err)
	}
	if _, err := db.CreateRelation(c.ID, a.ID, 0.6); err != nil {
		t.Fatalf("CreateRelation: %v", err)
	}

	if err := db.DeleteMemory(a.ID); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}

	got, _ := db.GetMemory(a.ID)
	if got != nil {
		t.Error("expected memory a to be deleted")
	}

	// Both edges referenced a — all must be gone.
	for _, id := range []int64{a.ID, b.ID, c.ID} {
		n, err := db.CountRelations(id)
		if err != nil {
			t.Fatalf("CountRelations: %v", err)
		}
		if n != 0 {
			t.Errorf("memory %d still has %d relations", id, n)
		}
	}
}

func TestTouchMemory(t *testing.T) {
	db := testDB(t)
	m := mustCreate(t, db, &Memory{Content: "touch me", Importance: 0.5})

	if err := db.TouchMemory(m.ID); err != nil {
		t.Fatalf("TouchMemory: %v", err)
	}
	got, _ := db.GetMemory(m.ID)
	if got.LastAccessed == nil {
		t.Fatal("expected last_accessed to be set")
	}

	if err := db.TouchMemory(9999); err == nil {
		t.Error("expected error touching missing memory")
	}
}

func TestSearchCandidatesIncludesAllCore(t *testing.T) {
	db := testDB(t)

	core := mustCreate(t, db, &Memory{Content: "never force push to main", Keywords: "git,rules", MemoryType: TypeCore, Importance: 0.9})
	match := mustCreate(t, db, &Memory{Content: "the deploy pipeline uses blue green", Keywords: "deploy,pipeline", Importance: 0.6})
	mustCreate(t, db, &Memory{Content: "likes espresso", Keywords: "coffee", Importance: 0.3})

	got, err := db.SearchCandidates([]string{"deploy"}, 10)
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}

	var foundCore, foundMatch, foundOther bool
	for _, m := range got {
		switch m.ID {
		case core.ID:
			foundCore = true
		case match.ID:
			foundMatch = true
		default:
			foundOther = true
		}
	}
	if !foundCore {
		t.Error("core memory missing from candidates despite no term match")
	}
	if !foundMatch {
		t.Error("term-matching memory missing from candidates")
	}
	if foundOther {
		t.Error("non-matching factual memory returned")
	}
}

func TestDueForReview(t *testing.T) {
	db := testDB(t)

	stale := mustCreate(t, db, &Memory{Content: "stale", Importance: 0.5})
	pinned := mustCreate(t, db, &Memory{Content: "pinned", Importance: 0.5, IsPinned: true})
	fresh := mustCreate(t, db, &Memory{Content: "fresh", Importance: 0.5})

	// Make stale and pinned look old, fresh recently accessed.
	old := time.Now().Add(-30 * 24 * time.Hour).UnixMilli()
	for _, id := range []int64{stale.ID, pinned.ID} {
		if _, err := db.Exec("UPDATE memories SET created_at = ? WHERE id = ?", old, id); err != nil {
			t.Fatalf("age memory: %v", err)
		}
	}
	if err := db.TouchMemory(fresh.ID); err != nil {
		t.Fatalf("TouchMemory: %v", err)
	}

	cutoff := time.Now().Add(-14 * 24 * time.Hour).UnixMilli()
	due, err := db.DueForReview(cutoff, 20)
	if err != nil {
		t.Fatalf("DueForReview: %v", err)
	}

	if len(due) != 1 || due[0].ID != stale.ID {
		t.Errorf("expected only the stale unpinned memory, got %+v", due)
	}
}
