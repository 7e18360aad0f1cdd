package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is a write-once record of a lifecycle decision, currently
// written only by consolidation. Entries are appended, never updated.
type AuditEntry struct {
	ID        int64
	EntryID   string
	Action    string
	MemoryID  int64 // the surviving memory for consolidation entries
	Detail    string
	CreatedAt int64
}

// AppendAudit writes one audit entry. detail should be a JSON document
// capturing the decision (kept snapshot, reason, deleted ids).
func (db *DB) AppendAudit(action string, memoryID int64, detail string) error {
	if detail == "" {
		detail = "{}"
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO audit_log (entry_id, action, memory_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, "aud-"+uuid.NewString(), action, memoryID, detail, now)
	if err != nil {
		return fmt.Errorf("append audit %q: %w", action, err)
	}
	return nil
}

// ListAudit returns the most recent audit entries, newest first.
func (db *DB) ListAudit(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, entry_id, action, memory_id, detail, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Action, &e.MemoryID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
