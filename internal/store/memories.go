package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Memory types.
const (
	TypeCore    = "core"    // standing instructions, never threshold-filtered
	TypeFactual = "factual" // project facts, preferences, decisions
)

// Importance levels, derived from importance via fixed thresholds.
const (
	LevelImportant   = "important"
	LevelModerate    = "moderate"
	LevelUnimportant = "unimportant"
)

// Memory represents one stored memory row.
type Memory struct {
	ID              int64
	Content         string
	Keywords        string // comma-joined terms
	Context         string // provenance snippet
	Importance      float64
	ImportanceLevel string
	MemoryType      string
	MemorySubtype   string // instruction, reflection, preference, project_info, decision, solution, knowledge
	IsPinned        bool
	CreatedAt       int64  // unix millis
	LastAccessed    *int64 // unix millis, nil until first access
}

// LevelForImportance maps an importance value to its level.
// Thresholds: >= 0.7 important, >= 0.4 moderate, else unimportant.
func LevelForImportance(importance float64) string {
	switch {
	case importance >= 0.7:
		return LevelImportant
	case importance >= 0.4:
		return LevelModerate
	default:
		return LevelUnimportant
	}
}

// ClampImportance forces importance into the valid [0.1, 1.0] range.
func ClampImportance(importance float64) float64 {
	if importance < 0.1 {
		return 0.1
	}
	if importance > 1.0 {
		return 1.0
	}
	return importance
}

const memoryColumns = `id, content, keywords, context, importance, importance_level,
	memory_type, memory_subtype, is_pinned, created_at, last_accessed`

// CreateMemory inserts a new memory. Importance is clamped and the level
// derived; memory_type defaults to factual.
func (db *DB) CreateMemory(m *Memory) error {
	now := time.Now().UnixMilli()
	if m.MemoryType == "" {
		m.MemoryType = TypeFactual
	}
	if m.MemoryType != TypeCore && m.MemoryType != TypeFactual {
		return fmt.Errorf("invalid memory type %q", m.MemoryType)
	}
	m.Importance = ClampImportance(m.Importance)
	m.ImportanceLevel = LevelForImportance(m.Importance)

	pinned := 0
	if m.IsPinned {
		pinned = 1
	}

	result, err := db.Exec(`
		INSERT INTO memories (content, keywords, context, importance, importance_level,
			memory_type, memory_subtype, is_pinned, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULL)
	`, m.Content, m.Keywords, m.Context, m.Importance, m.ImportanceLevel,
		m.MemoryType, m.MemorySubtype, pinned, now)
	if err != nil {
		return fmt.Errorf("create memory: %w", err)
	}

	id, _ := result.LastInsertId()
	m.ID = id
	m.CreatedAt = now
	m.LastAccessed = nil
	return nil
}

// GetMemory returns a memory by ID, or nil if not found.
func (db *DB) GetMemory(id int64) (*Memory, error) {
	row := db.QueryRow(`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory %d: %w", id, err)
	}
	return m, nil
}

// ListMemories returns all memories, optionally filtered by type,
// newest first.
func (db *DB) ListMemories(memoryType string) ([]Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories`
	var args []any
	if memoryType != "" {
		query += ` WHERE memory_type = ?`
		args = append(args, memoryType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// CountMemories returns the total number of stored memories.
func (db *DB) CountMemories() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM memories").Scan(&count)
	return count, err
}

// SearchCandidates returns retrieval candidates for a tokenized query:
// every core memory, plus up to limit non-core memories whose keywords or
// content contain any of the terms. Core memories must always reach the
// scorer, so they bypass the term match entirely.
func (db *DB) SearchCandidates(terms []string, limit int) ([]Memory, error) {
	rows, err := db.Query(`SELECT ` + memoryColumns + ` FROM memories WHERE memory_type = 'core'`)
	if err != nil {
		return nil, fmt.Errorf("search core candidates: %w", err)
	}
	core, err := scanMemories(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if len(terms) == 0 {
		return core, nil
	}

	var clauses []string
	var args []any
	for _, t := range terms {
		pattern := "%" + escapeLike(t) + "%"
		clauses = append(clauses, `keywords LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := `SELECT ` + memoryColumns + ` FROM memories
		WHERE memory_type != 'core' AND (` + strings.Join(clauses, " OR ") + `)
		ORDER BY created_at DESC LIMIT ?`

	rows, err = db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()
	others, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}

	return append(core, others...), nil
}

// escapeLike escapes LIKE wildcards in a search term.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// DueForReview returns unpinned memories whose last access (or creation,
// if never accessed) is older than the cutoff, oldest first.
func (db *DB) DueForReview(cutoff int64, limit int) ([]Memory, error) {
	rows, err := db.Query(`
		SELECT `+memoryColumns+` FROM memories
		WHERE is_pinned = 0 AND COALESCE(last_accessed, created_at) < ?
		ORDER BY COALESCE(last_accessed, created_at) ASC
		LIMIT ?
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("due for review: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// TouchMemory records an access: bumps last_accessed to now.
func (db *DB) TouchMemory(id int64) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`UPDATE memories SET last_accessed = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("touch memory %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("touch memory %d: not found", id)
	}
	return nil
}

// UpdateImportance sets a memory's importance and level. Used by the review
// downgrade path, which overrides the derived level with "unimportant".
func (db *DB) UpdateImportance(id int64, importance float64, level string) error {
	importance = ClampImportance(importance)
	result, err := db.Exec(`
		UPDATE memories SET importance = ?, importance_level = ? WHERE id = ?
	`, importance, level, id)
	if err != nil {
		return fmt.Errorf("update importance %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update importance %d: not found", id)
	}
	return nil
}

// DeleteMemory removes a memory and all relation edges referencing it,
// in one transaction.
func (db *DB) DeleteMemory(id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete memory %d: %w", id, err)
	}

	if _, err := tx.Exec(
		`DELETE FROM memory_relations WHERE memory_id = ? OR related_memory_id = ?`, id, id,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete relations for memory %d: %w", id, err)
	}

	result, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete memory %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("delete memory %d: not found", id)
	}

	return tx.Commit()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*Memory, error) {
	var m Memory
	var pinned int
	var subtype sql.NullString
	var lastAccessed sql.NullInt64
	err := row.Scan(&m.ID, &m.Content, &m.Keywords, &m.Context,
		&m.Importance, &m.ImportanceLevel, &m.MemoryType, &subtype,
		&pinned, &m.CreatedAt, &lastAccessed)
	if err != nil {
		return nil, err
	}
	m.MemorySubtype = subtype.String
	m.IsPinned = pinned != 0
	if lastAccessed.Valid {
		m.LastAccessed = &lastAccessed.Int64
	}
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	var memories []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}
