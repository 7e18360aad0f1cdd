package store

import (
	"database/sql"
	"fmt"
)

// Persistent counter keys.
const (
	CounterMemories         = "memory_counter"
	CounterLastOrganization = "last_memory_organization"
)

// GetCounter returns a counter value, or 0 if the key has never been set.
func (db *DB) GetCounter(key string) (int64, error) {
	var value int64
	err := db.QueryRow("SELECT value FROM counters WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %q: %w", key, err)
	}
	return value, nil
}

// SetCounter upserts a counter value.
func (db *DB) SetCounter(key string, value int64) error {
	_, err := db.Exec(`
		INSERT INTO counters (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set counter %q: %w", key, err)
	}
	return nil
}

// IncrementMemoryCounter bumps the memory-creation counter and reports
// whether the consolidation threshold was reached. The increment, the
// comparison, and the reset all happen inside one transaction so that two
// concurrent creations cannot both observe the threshold. The returned
// value is the counter as seen by this increment (pre-reset).
func (db *DB) IncrementMemoryCounter(threshold int64) (int64, bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("begin counter increment: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO counters (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1
	`, CounterMemories); err != nil {
		tx.Rollback()
		return 0, false, fmt.Errorf("increment counter: %w", err)
	}

	var value int64
	if err := tx.QueryRow("SELECT value FROM counters WHERE key = ?", CounterMemories).Scan(&value); err != nil {
		tx.Rollback()
		return 0, false, fmt.Errorf("read counter: %w", err)
	}

	triggered := threshold > 0 && value >= threshold
	if triggered {
		if _, err := tx.Exec("UPDATE counters SET value = 0 WHERE key = ?", CounterMemories); err != nil {
			tx.Rollback()
			return 0, false, fmt.Errorf("reset counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit counter increment: %w", err)
	}
	return value, triggered, nil
}

// ResetMemoryCounter sets the memory-creation counter back to 0.
// Idempotent; does not run consolidation.
func (db *DB) ResetMemoryCounter() error {
	return db.SetCounter(CounterMemories, 0)
}

// LastOrganization returns the timestamp (unix millis) of the last
// consolidation run, or 0 if none has happened.
func (db *DB) LastOrganization() (int64, error) {
	return db.GetCounter(CounterLastOrganization)
}

// SetLastOrganization records the completion time of a consolidation run.
func (db *DB) SetLastOrganization(ts int64) error {
	return db.SetCounter(CounterLastOrganization, ts)
}
