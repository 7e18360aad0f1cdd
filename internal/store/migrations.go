package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: the memory corpus",
		SQL: `
CREATE TABLE memories (
    id               INTEGER PRIMARY KEY,
    content          TEXT NOT NULL,
    keywords         TEXT NOT NULL DEFAULT '',
    context          TEXT NOT NULL DEFAULT '',
    importance       REAL NOT NULL DEFAULT 0.5 CHECK (importance >= 0.1 AND importance <= 1.0),
    importance_level TEXT NOT NULL DEFAULT 'moderate' CHECK (importance_level IN ('important', 'moderate', 'unimportant')),
    memory_type      TEXT NOT NULL DEFAULT 'factual' CHECK (memory_type IN ('core', 'factual')),
    memory_subtype   TEXT,
    is_pinned        INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    last_accessed    INTEGER
);

CREATE INDEX idx_memories_type     ON memories(memory_type);
CREATE INDEX idx_memories_created  ON memories(created_at DESC);
CREATE INDEX idx_memories_accessed ON memories(last_accessed);
`,
	},
	{
		Version:     2,
		Description: "memory_relations: directed edges between memories",
		SQL: `
CREATE TABLE memory_relations (
    id                 INTEGER PRIMARY KEY,
    memory_id          INTEGER NOT NULL,
    related_memory_id  INTEGER NOT NULL,
    relation_strength  REAL NOT NULL DEFAULT 0.5,
    created_at         INTEGER NOT NULL,

    UNIQUE (memory_id, related_memory_id),
    FOREIGN KEY (memory_id) REFERENCES memories(id) ON DELETE CASCADE,
    FOREIGN KEY (related_memory_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX idx_relations_memory  ON memory_relations(memory_id);
CREATE INDEX idx_relations_related ON memory_relations(related_memory_id);
`,
	},
	{
		Version:     3,
		Description: "review_sessions: append-only review run history",
		SQL: `
CREATE TABLE review_sessions (
    id              INTEGER PRIMARY KEY,
    run_id          TEXT NOT NULL UNIQUE,
    timestamp       INTEGER NOT NULL,
    reviewed_count  INTEGER NOT NULL DEFAULT 0,
    forgotten_count INTEGER NOT NULL DEFAULT 0,
    unchanged_count INTEGER NOT NULL DEFAULT 0,
    details         TEXT NOT NULL DEFAULT '[]',
    trigger_type    TEXT NOT NULL CHECK (trigger_type IN ('startup', 'periodic', 'manual', 'auto'))
);

CREATE INDEX idx_reviews_timestamp ON review_sessions(timestamp DESC);
`,
	},
	{
		Version:     4,
		Description: "counters: persistent key/value counters",
		SQL: `
CREATE TABLE counters (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		Version:     5,
		Description: "audit_log: write-once consolidation decisions",
		SQL: `
CREATE TABLE audit_log (
    id         INTEGER PRIMARY KEY,
    entry_id   TEXT NOT NULL UNIQUE,
    action     TEXT NOT NULL,
    memory_id  INTEGER,
    detail     TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_audit_created ON audit_log(created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
