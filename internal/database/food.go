package database

import (
	"database/sql"
	"fmt"
)

// ensureFoodEntry records a food value in the catalog if it is not already
// there. Returns whether the entry existed before the call.
func ensureFoodEntry(tx *sql.Tx, foodText, createdAt string) (bool, error) {
	result, err := tx.Exec(
		`INSERT INTO food_entries (food_text, created_at) VALUES (?, ?)
		 ON CONFLICT(food_text) DO NOTHING`,
		foodText, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to ensure food entry: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check food entry insert: %w", err)
	}

	return inserted == 0, nil
}

// reconcileFoodCatalog removes catalog entries no longer referenced by any
// response. It must run inside every transaction that can orphan a food value
// so the catalog always mirrors the live set of in-use foods.
func reconcileFoodCatalog(tx *sql.Tx) error {
	_, err := tx.Exec(
		`DELETE FROM food_entries WHERE food_text NOT IN (SELECT food_text FROM responses)`,
	)
	if err != nil {
		return fmt.Errorf("failed to reconcile food catalog: %w", err)
	}
	return nil
}

// ListFoodEntries returns the distinct food values already claimed, sorted.
func (db *DB) ListFoodEntries() ([]string, error) {
	rows, err := db.Query(`SELECT food_text FROM food_entries ORDER BY food_text`)
	if err != nil {
		return nil, fmt.Errorf("failed to list food entries: %w", err)
	}
	defer rows.Close()

	var foods []string
	for rows.Next() {
		var food string
		if err := rows.Scan(&food); err != nil {
			return nil, fmt.Errorf("failed to scan food entry: %w", err)
		}
		foods = append(foods, food)
	}

	return foods, rows.Err()
}
