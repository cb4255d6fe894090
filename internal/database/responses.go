package database

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// GenerateToken returns an opaque self-service token with 128 bits of entropy.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}

// normalizeFood capitalizes the first letter of a food value so the catalog
// deduplicates regardless of how visitors type it.
func normalizeFood(food string) string {
	r, size := utf8.DecodeRuneInString(food)
	if r == utf8.RuneError {
		return food
	}
	return string(unicode.ToUpper(r)) + food[size:]
}

// validateResponseInput checks the shared submit/update constraints and
// returns the normalized food value.
func (db *DB) validateResponseInput(participantName string, peopleCount int, foodText string) (string, error) {
	if participantName == "" {
		return "", &ValidationError{Field: "participant", Reason: "must be selected"}
	}

	onList, err := db.IsGuest(participantName)
	if err != nil {
		return "", err
	}
	if !onList {
		return "", &ValidationError{Field: "participant", Reason: "not on the guest list"}
	}

	if peopleCount <= 0 {
		return "", &ValidationError{Field: "people count", Reason: "must be positive"}
	}

	if strings.TrimSpace(foodText) == "" {
		return "", &ValidationError{Field: "food", Reason: "must not be empty"}
	}

	return normalizeFood(foodText), nil
}

// SubmitResponse creates the participant, response and self-service token in
// one transaction and returns the response id with its token. The caller
// stores the pair in a durable client-side credential.
func (db *DB) SubmitResponse(participantName string, peopleCount int, foodText string, now time.Time) (int64, string, error) {
	food, err := db.validateResponseInput(participantName, peopleCount, foodText)
	if err != nil {
		return 0, "", err
	}

	token, err := GenerateToken()
	if err != nil {
		return 0, "", err
	}

	timestamp := formatTime(now)

	tx, err := db.Begin()
	if err != nil {
		return 0, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := ensureFoodEntry(tx, food, timestamp); err != nil {
		return 0, "", err
	}

	result, err := tx.Exec(
		`INSERT INTO participants (name, selected_at) VALUES (?, ?)`,
		participantName, timestamp,
	)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create participant: %w", err)
	}

	participantID, err := result.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to get participant id: %w", err)
	}

	result, err = tx.Exec(
		`INSERT INTO responses (participant_id, people_count, food_text, created_at)
		 VALUES (?, ?, ?, ?)`,
		participantID, peopleCount, food, timestamp,
	)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create response: %w", err)
	}

	responseID, err := result.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("failed to get response id: %w", err)
	}

	// Replace any previous token so at most one is active per response.
	if _, err := tx.Exec(
		`INSERT INTO response_tokens (response_id, token, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(response_id) DO UPDATE SET token = excluded.token, created_at = excluded.created_at`,
		responseID, token, timestamp,
	); err != nil {
		return 0, "", fmt.Errorf("failed to store response token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return responseID, token, nil
}

// GetResponseByToken returns the response for an exact (id, token) match, or
// nil without an error when there is no match. Callers use it to decide
// between the edit and submit flows.
func (db *DB) GetResponseByToken(responseID int64, token string) (*ResponseWithParticipant, error) {
	resp := &ResponseWithParticipant{}
	err := db.QueryRow(
		`SELECT responses.id, responses.participant_id, responses.people_count,
		        responses.food_text, responses.created_at, participants.name
		 FROM responses
		 JOIN participants ON participants.id = responses.participant_id
		 JOIN response_tokens ON response_tokens.response_id = responses.id
		 WHERE responses.id = ? AND response_tokens.token = ?`,
		responseID, token,
	).Scan(&resp.ID, &resp.ParticipantID, &resp.PeopleCount, &resp.FoodText,
		&resp.CreatedAt, &resp.ParticipantName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get response by token: %w", err)
	}

	return resp, nil
}

func (db *DB) tokenMatches(responseID int64, token string) (bool, error) {
	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM response_tokens WHERE response_id = ? AND token = ?)`,
		responseID, token,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check response token: %w", err)
	}
	return exists, nil
}

// UpdateResponseByToken lets the token bearer edit their own response. The
// same constraints as SubmitResponse apply to the new values.
func (db *DB) UpdateResponseByToken(responseID int64, token, participantName string, peopleCount int, foodText string, now time.Time) error {
	ok, err := db.tokenMatches(responseID, token)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Entity: "response token"}
	}

	return db.updateResponse(responseID, participantName, peopleCount, foodText, now)
}

// UpdateResponseByAdmin edits a response from the admin panel. The admin
// session is already authorized, so no token check applies.
func (db *DB) UpdateResponseByAdmin(responseID int64, participantName string, peopleCount int, foodText string, now time.Time) error {
	return db.updateResponse(responseID, participantName, peopleCount, foodText, now)
}

func (db *DB) updateResponse(responseID int64, participantName string, peopleCount int, foodText string, now time.Time) error {
	food, err := db.validateResponseInput(participantName, peopleCount, foodText)
	if err != nil {
		return err
	}

	timestamp := formatTime(now)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var participantID int64
	err = tx.QueryRow(`SELECT participant_id FROM responses WHERE id = ?`, responseID).Scan(&participantID)
	if err == sql.ErrNoRows {
		return &NotFoundError{Entity: "response"}
	}
	if err != nil {
		return fmt.Errorf("failed to load response: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE participants SET name = ? WHERE id = ?`,
		participantName, participantID,
	); err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE responses SET people_count = ?, food_text = ? WHERE id = ?`,
		peopleCount, food, responseID,
	); err != nil {
		return fmt.Errorf("failed to update response: %w", err)
	}

	if _, err := ensureFoodEntry(tx, food, timestamp); err != nil {
		return err
	}

	// The old food value may have lost its last reference.
	if err := reconcileFoodCatalog(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteResponseByToken removes the token bearer's response together with its
// participant and token.
func (db *DB) DeleteResponseByToken(responseID int64, token string) error {
	ok, err := db.tokenMatches(responseID, token)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Entity: "response token"}
	}

	return db.deleteResponse(responseID)
}

// DeleteResponseByAdmin removes a response from the admin panel.
func (db *DB) DeleteResponseByAdmin(responseID int64) error {
	return db.deleteResponse(responseID)
}

func (db *DB) deleteResponse(responseID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var participantID int64
	err = tx.QueryRow(`SELECT participant_id FROM responses WHERE id = ?`, responseID).Scan(&participantID)
	if err == sql.ErrNoRows {
		return &NotFoundError{Entity: "response"}
	}
	if err != nil {
		return fmt.Errorf("failed to load response: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM response_tokens WHERE response_id = ?`, responseID); err != nil {
		return fmt.Errorf("failed to delete response token: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM responses WHERE id = ?`, responseID); err != nil {
		return fmt.Errorf("failed to delete response: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM participants WHERE id = ?`, participantID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}

	if err := reconcileFoodCatalog(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListResponses returns all responses with their participant names, newest
// first, for the admin table.
func (db *DB) ListResponses() ([]*ResponseWithParticipant, error) {
	rows, err := db.Query(
		`SELECT responses.id, responses.participant_id, responses.people_count,
		        responses.food_text, responses.created_at, participants.name
		 FROM responses
		 JOIN participants ON participants.id = responses.participant_id
		 ORDER BY responses.created_at DESC, responses.id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*ResponseWithParticipant
	for rows.Next() {
		resp := &ResponseWithParticipant{}
		if err := rows.Scan(&resp.ID, &resp.ParticipantID, &resp.PeopleCount,
			&resp.FoodText, &resp.CreatedAt, &resp.ParticipantName); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}
