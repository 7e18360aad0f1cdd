package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Review trigger types.
const (
	TriggerStartup  = "startup"
	TriggerPeriodic = "periodic"
	TriggerManual   = "manual"
	TriggerAuto     = "auto"
)

// ReviewSession is one append-only record of a review run. Rows are never
// updated after insertion.
type ReviewSession struct {
	ID             int64
	RunID          string
	Timestamp      int64
	ReviewedCount  int
	ForgottenCount int
	UnchangedCount int
	Details        string // JSON array of per-item decisions
	TriggerType    string
}

// CreateReviewSession appends a review session row. A run_id is generated
// if the caller did not set one.
func (db *DB) CreateReviewSession(s *ReviewSession) error {
	if s.RunID == "" {
		s.RunID = "rev-" + uuid.NewString()
	}
	if s.Timestamp == 0 {
		s.Timestamp = time.Now().UnixMilli()
	}
	if s.Details == "" {
		s.Details = "[]"
	}

	result, err := db.Exec(`
		INSERT INTO review_sessions (run_id, timestamp, reviewed_count, forgotten_count, unchanged_count, details, trigger_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, s.Timestamp, s.ReviewedCount, s.ForgottenCount, s.UnchangedCount, s.Details, s.TriggerType)
	if err != nil {
		return fmt.Errorf("create review session: %w", err)
	}

	id, _ := result.LastInsertId()
	s.ID = id
	return nil
}

// ListReviewSessions returns the most recent review sessions, newest first.
func (db *DB) ListReviewSessions(limit int) ([]ReviewSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, run_id, timestamp, reviewed_count, forgotten_count, unchanged_count, details, trigger_type
		FROM review_sessions ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list review sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ReviewSession
	for rows.Next() {
		var s ReviewSession
		if err := rows.Scan(&s.ID, &s.RunID, &s.Timestamp, &s.ReviewedCount,
			&s.ForgottenCount, &s.UnchangedCount, &s.Details, &s.TriggerType); err != nil {
			return nil, fmt.Errorf("scan review session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
