package database

import (
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return db
}

func seedGuests(t *testing.T, db *DB, names ...string) {
	t.Helper()
	if err := db.ReplaceGuestList(names, time.Now()); err != nil {
		t.Fatalf("Failed to seed guest list: %v", err)
	}
}
