package database

import (
	"database/sql"
	"fmt"
	"time"
)

// blockThreshold is the number of failed logins after which an IP is blocked
// until its attempts age out of the 24h retention window.
const blockThreshold = 3

// RecordLoginFailure increments the failure count for ip and returns the new
// count.
func (db *DB) RecordLoginFailure(ip string, now time.Time) (int, error) {
	attempt, err := db.getLoginAttempt(ip)
	if err != nil {
		return 0, err
	}

	attempts := 1
	if attempt != nil {
		attempts = attempt.AttemptCount + 1
	}

	if _, err := db.Exec(
		`INSERT INTO login_attempts (ip_address, attempt_count, last_attempt_at) VALUES (?, ?, ?)
		 ON CONFLICT(ip_address) DO UPDATE SET attempt_count = excluded.attempt_count, last_attempt_at = excluded.last_attempt_at`,
		ip, attempts, formatTime(now),
	); err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}

	return attempts, nil
}

// ResetLoginAttempts clears the failure record for ip after a successful login.
func (db *DB) ResetLoginAttempts(ip string) error {
	if _, err := db.Exec(`DELETE FROM login_attempts WHERE ip_address = ?`, ip); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// IsBlocked reports whether ip has reached the failure threshold. Callers run
// PurgeStale first so an expired block is not served past its window.
func (db *DB) IsBlocked(ip string) (bool, error) {
	attempt, err := db.getLoginAttempt(ip)
	if err != nil {
		return false, err
	}
	return attempt != nil && attempt.AttemptCount >= blockThreshold, nil
}

func (db *DB) getLoginAttempt(ip string) (*LoginAttempt, error) {
	attempt := &LoginAttempt{IPAddress: ip}
	err := db.QueryRow(
		`SELECT attempt_count, last_attempt_at FROM login_attempts WHERE ip_address = ?`,
		ip,
	).Scan(&attempt.AttemptCount, &attempt.LastAttemptAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login attempt: %w", err)
	}

	return attempt, nil
}

// LogPageVisit appends a visit record for the admin activity view.
func (db *DB) LogPageVisit(ip, pagePath string, now time.Time) error {
	if _, err := db.Exec(
		`INSERT INTO page_visits (ip_address, page_path, visited_at) VALUES (?, ?, ?)`,
		ip, pagePath, formatTime(now),
	); err != nil {
		return fmt.Errorf("failed to log page visit: %w", err)
	}
	return nil
}

// PurgeStale deletes page visits and login attempts older than cutoff. A
// blocked IP therefore unblocks 24h after its last failure, not its first.
func (db *DB) PurgeStale(cutoff time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cutoffStr := formatTime(cutoff)

	if _, err := tx.Exec(`DELETE FROM page_visits WHERE visited_at < ?`, cutoffStr); err != nil {
		return fmt.Errorf("failed to purge page visits: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM login_attempts WHERE last_attempt_at < ?`, cutoffStr); err != nil {
		return fmt.Errorf("failed to purge login attempts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListLoginAttempts returns the current failure records, most recent first.
func (db *DB) ListLoginAttempts() ([]*LoginAttempt, error) {
	rows, err := db.Query(
		`SELECT ip_address, attempt_count, last_attempt_at FROM login_attempts
		 ORDER BY last_attempt_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*LoginAttempt
	for rows.Next() {
		attempt := &LoginAttempt{}
		if err := rows.Scan(&attempt.IPAddress, &attempt.AttemptCount, &attempt.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

// CountVisitsByIP aggregates retained page visits per client IP.
func (db *DB) CountVisitsByIP() ([]*VisitCount, error) {
	rows, err := db.Query(
		`SELECT ip_address, COUNT(*), MAX(visited_at) FROM page_visits
		 GROUP BY ip_address ORDER BY MAX(visited_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	defer rows.Close()

	var counts []*VisitCount
	for rows.Next() {
		count := &VisitCount{}
		if err := rows.Scan(&count.IPAddress, &count.Visits, &count.LastVisit); err != nil {
			return nil, fmt.Errorf("failed to scan visit count: %w", err)
		}
		counts = append(counts, count)
	}

	return counts, rows.Err()
}
