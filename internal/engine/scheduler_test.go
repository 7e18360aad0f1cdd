package engine

import (
	"testing"
	"time"

	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

func TestSchedulerStartupPass(t *testing.T) {
	db := testDB(t)
	mock := &llm.MockClient{Responses: []string{"[]"}}
	e := testEngine(t, db, mock)

	s := NewScheduler(e, time.Hour)
	s.Start()
	defer s.Stop()

	// Start runs the startup pass synchronously, so the session row exists
	// before Start returns.
	sessions, err := db.ListReviewSessions(5)
	if err != nil {
		t.Fatalf("ListReviewSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 startup session, got %d", len(sessions))
	}
	if sessions[0].TriggerType != store.TriggerStartup {
		t.Errorf("trigger = %q, want startup", sessions[0].TriggerType)
	}

	// The consolidation check stamps a never-organized store.
	last, _ := db.LastOrganization()
	if last == 0 {
		t.Error("startup pass did not stamp last organization")
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	db := testDB(t)
	e := testEngine(t, db, &llm.MockClient{Responses: []string{"[]"}})

	s := NewScheduler(e, time.Hour)
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSchedulerDefaultInterval(t *testing.T) {
	s := NewScheduler(nil, 0)
	if s.interval != 30*time.Minute {
		t.Errorf("interval = %v, want 30m", s.interval)
	}
}
