package store

import (
	"fmt"
	"time"
)

// MemoryRelation is a directed edge between two memories. Edges are used for
// graph lookups only; they never influence relevance scoring.
type MemoryRelation struct {
	ID               int64
	MemoryID         int64
	RelatedMemoryID  int64
	RelationStrength float64
	CreatedAt        int64
}

// CreateRelation inserts a directed edge. Both endpoints must exist
// (enforced by foreign keys). Duplicate edges are rejected.
func (db *DB) CreateRelation(memoryID, relatedMemoryID int64, strength float64) (*MemoryRelation, error) {
	if memoryID == relatedMemoryID {
		return nil, fmt.Errorf("relation cannot be self-referential (memory %d)", memoryID)
	}
	if strength < 0 {
		strength = 0
	}
	if strength > 1 {
		strength = 1
	}

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO memory_relations (memory_id, related_memory_id, relation_strength, created_at)
		VALUES (?, ?, ?, ?)
	`, memoryID, relatedMemoryID, strength, now)
	if err != nil {
		return nil, fmt.Errorf("create relation %d -> %d: %w", memoryID, relatedMemoryID, err)
	}

	id, _ := result.LastInsertId()
	return &MemoryRelation{
		ID:               id,
		MemoryID:         memoryID,
		RelatedMemoryID:  relatedMemoryID,
		RelationStrength: strength,
		CreatedAt:        now,
	}, nil
}

// ListRelations returns all edges touching a memory, in either direction.
func (db *DB) ListRelations(memoryID int64) ([]MemoryRelation, error) {
	rows, err := db.Query(`
		SELECT id, memory_id, related_memory_id, relation_strength, created_at
		FROM memory_relations
		WHERE memory_id = ? OR related_memory_id = ?
		ORDER BY created_at DESC
	`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("list relations for %d: %w", memoryID, err)
	}
	defer rows.Close()

	var relations []MemoryRelation
	for rows.Next() {
		var r MemoryRelation
		if err := rows.Scan(&r.ID, &r.MemoryID, &r.RelatedMemoryID, &r.RelationStrength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

// CountRelations returns the number of edges touching a memory.
func (db *DB) CountRelations(memoryID int64) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM memory_relations
		WHERE memory_id = ? OR related_memory_id = ?
	`, memoryID, memoryID).Scan(&count)
	return count, err
}
