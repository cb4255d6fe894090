package database

import (
	"fmt"
	"time"
)

// SeedGuestList bulk-inserts the default names if the guest list is empty.
// It runs on every survey page load so a fresh deployment is never without
// selectable guests.
func (db *DB) SeedGuestList(names []string, now time.Time) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM guest_list`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count guest list: %w", err)
	}

	if count > 0 || len(names) == 0 {
		return nil
	}

	return db.ReplaceGuestList(names, now)
}

// ReplaceGuestList atomically swaps the entire guest list for the given
// names. Names are stored as provided; callers pre-trim and drop blanks.
func (db *DB) ReplaceGuestList(names []string, now time.Time) error {
	if len(names) == 0 {
		return &ValidationError{Field: "guest list", Reason: "must not be empty"}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM guest_list`); err != nil {
		return fmt.Errorf("failed to clear guest list: %w", err)
	}

	createdAt := formatTime(now)
	for _, name := range names {
		if _, err := tx.Exec(
			`INSERT INTO guest_list (name, created_at) VALUES (?, ?)`,
			name, createdAt,
		); err != nil {
			return fmt.Errorf("failed to insert guest %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListGuestNames returns the guest list sorted alphabetically.
func (db *DB) ListGuestNames() ([]string, error) {
	rows, err := db.Query(`SELECT name FROM guest_list ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// IsGuest reports whether name is on the current guest list.
func (db *DB) IsGuest(name string) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM guest_list WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check guest list: %w", err)
	}
	return exists, nil
}
