package database

import (
	"errors"
	"testing"
	"time"
)

func TestSubmitAndFetchByToken(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna", "Bernd")

	id, token, err := db.SubmitResponse("Anna", 3, "kartoffelsalat", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}
	if token == "" {
		t.Fatal("SubmitResponse() returned empty token")
	}

	resp, err := db.GetResponseByToken(id, token)
	if err != nil {
		t.Fatalf("GetResponseByToken() error = %v", err)
	}
	if resp == nil {
		t.Fatal("GetResponseByToken() returned nil for valid token")
	}
	if resp.ParticipantName != "Anna" {
		t.Errorf("participant name got = %q, want %q", resp.ParticipantName, "Anna")
	}
	if resp.PeopleCount != 3 {
		t.Errorf("people count got = %d, want 3", resp.PeopleCount)
	}
	if resp.FoodText != "Kartoffelsalat" {
		t.Errorf("food text got = %q, want %q (first letter capitalized)", resp.FoodText, "Kartoffelsalat")
	}

	// Wrong token is a silent miss, not an error.
	resp, err = db.GetResponseByToken(id, "wrong-token")
	if err != nil {
		t.Fatalf("GetResponseByToken() with wrong token error = %v", err)
	}
	if resp != nil {
		t.Error("GetResponseByToken() with wrong token should return nil")
	}

	foods, err := db.ListFoodEntries()
	if err != nil {
		t.Fatalf("ListFoodEntries() error = %v", err)
	}
	if len(foods) != 1 || foods[0] != "Kartoffelsalat" {
		t.Errorf("food entries got = %v, want [Kartoffelsalat]", foods)
	}
}

func TestSubmitResponseValidation(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna")

	tests := []struct {
		name        string
		participant string
		peopleCount int
		foodText    string
	}{
		{
			name:        "participant not on guest list",
			participant: "Eindringling",
			peopleCount: 2,
			foodText:    "Salat",
		},
		{
			name:        "empty participant",
			participant: "",
			peopleCount: 2,
			foodText:    "Salat",
		},
		{
			name:        "zero people count",
			participant: "Anna",
			peopleCount: 0,
			foodText:    "Salat",
		},
		{
			name:        "negative people count",
			participant: "Anna",
			peopleCount: -1,
			foodText:    "Salat",
		},
		{
			name:        "empty food",
			participant: "Anna",
			peopleCount: 2,
			foodText:    "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := db.SubmitResponse(tt.participant, tt.peopleCount, tt.foodText, time.Now())
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("SubmitResponse() error = %v, want ValidationError", err)
			}
		})
	}

	// Nothing should have been persisted by the failed submissions.
	responses, err := db.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses() error = %v", err)
	}
	if len(responses) != 0 {
		t.Errorf("responses after failed submits got = %d, want 0", len(responses))
	}
}

func TestUpdateResponseByToken(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna", "Bernd")

	id, token, err := db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	if err := db.UpdateResponseByToken(id, token, "Bernd", 5, "nudelsalat", time.Now()); err != nil {
		t.Fatalf("UpdateResponseByToken() error = %v", err)
	}

	resp, err := db.GetResponseByToken(id, token)
	if err != nil {
		t.Fatalf("GetResponseByToken() error = %v", err)
	}
	if resp.ParticipantName != "Bernd" {
		t.Errorf("participant name got = %q, want %q", resp.ParticipantName, "Bernd")
	}
	if resp.PeopleCount != 5 {
		t.Errorf("people count got = %d, want 5", resp.PeopleCount)
	}
	if resp.FoodText != "Nudelsalat" {
		t.Errorf("food text got = %q, want %q", resp.FoodText, "Nudelsalat")
	}

	// The old food value lost its last reference and must be gone.
	foods, err := db.ListFoodEntries()
	if err != nil {
		t.Fatalf("ListFoodEntries() error = %v", err)
	}
	if len(foods) != 1 || foods[0] != "Nudelsalat" {
		t.Errorf("food entries got = %v, want [Nudelsalat]", foods)
	}
}

func TestUpdateResponseByTokenMismatch(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna")

	id, _, err := db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	err = db.UpdateResponseByToken(id, "wrong-token", "Anna", 3, "Salat", time.Now())
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("UpdateResponseByToken() error = %v, want NotFoundError", err)
	}

	// The token check runs before validation, so bad input with a bad token
	// still reports the mismatch.
	err = db.UpdateResponseByToken(id, "wrong-token", "Anna", 0, "Salat", time.Now())
	if !errors.As(err, &notFound) {
		t.Errorf("token check should run before validation, got %v", err)
	}
}

func TestUpdateResponseByAdminRevalidates(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna")

	id, _, err := db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	err = db.UpdateResponseByAdmin(id, "Anna", 0, "Salat", time.Now())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("UpdateResponseByAdmin() error = %v, want ValidationError", err)
	}

	if err := db.UpdateResponseByAdmin(id, "Anna", 4, "torte", time.Now()); err != nil {
		t.Fatalf("UpdateResponseByAdmin() error = %v", err)
	}

	responses, err := db.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses() error = %v", err)
	}
	if len(responses) != 1 || responses[0].FoodText != "Torte" || responses[0].PeopleCount != 4 {
		t.Errorf("response after admin update got = %+v", responses[0])
	}
}

func TestDeleteResponseSharedFoodSurvives(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna", "Bernd")

	id1, token1, err := db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}
	id2, token2, err := db.SubmitResponse("Bernd", 3, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	if err := db.DeleteResponseByToken(id1, token1); err != nil {
		t.Fatalf("DeleteResponseByToken() error = %v", err)
	}

	// Still referenced by the second response.
	foods, err := db.ListFoodEntries()
	if err != nil {
		t.Fatalf("ListFoodEntries() error = %v", err)
	}
	if len(foods) != 1 {
		t.Errorf("food entries after first delete got = %v, want [Kuchen]", foods)
	}

	if err := db.DeleteResponseByToken(id2, token2); err != nil {
		t.Fatalf("DeleteResponseByToken() error = %v", err)
	}

	foods, err = db.ListFoodEntries()
	if err != nil {
		t.Fatalf("ListFoodEntries() error = %v", err)
	}
	if len(foods) != 0 {
		t.Errorf("food entries after last delete got = %v, want none", foods)
	}

	resp, err := db.GetResponseByToken(id1, token1)
	if err != nil || resp != nil {
		t.Errorf("GetResponseByToken() after delete got = (%v, %v), want (nil, nil)", resp, err)
	}
}

func TestDeleteResponseByAdminCascades(t *testing.T) {
	db := setupTestDB(t)
	seedGuests(t, db, "Anna")

	id, token, err := db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}

	if err := db.DeleteResponseByAdmin(id); err != nil {
		t.Fatalf("DeleteResponseByAdmin() error = %v", err)
	}

	resp, err := db.GetResponseByToken(id, token)
	if err != nil || resp != nil {
		t.Errorf("GetResponseByToken() after admin delete got = (%v, %v), want (nil, nil)", resp, err)
	}

	var participants, tokens int
	if err := db.QueryRow(`SELECT COUNT(*) FROM participants`).Scan(&participants); err != nil {
		t.Fatalf("count participants: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM response_tokens`).Scan(&tokens); err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	if participants != 0 || tokens != 0 {
		t.Errorf("orphans after delete: participants = %d, tokens = %d", participants, tokens)
	}

	var notFound *NotFoundError
	if err := db.DeleteResponseByAdmin(id); !errors.As(err, &notFound) {
		t.Errorf("DeleteResponseByAdmin() on missing response error = %v, want NotFoundError", err)
	}
}

func TestGenerateTokenEntropy(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if len(a) != 32 {
		t.Errorf("token length got = %d, want 32 hex chars (128 bits)", len(a))
	}
	if a == b {
		t.Error("two generated tokens should not collide")
	}
}
