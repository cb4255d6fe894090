package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/AlexTLDR/potluck/internal/config"
	"github.com/AlexTLDR/potluck/internal/database"
)

// stubServer implements Server with in-memory session and credential state.
type stubServer struct {
	db         *database.DB
	cfg        *config.Config
	gatePassed bool

	credentialID    int64
	credentialToken string
	hasCredential   bool
}

func (s *stubServer) GetDB() *database.DB { return s.db }

func (s *stubServer) GetConfig() *config.Config { return s.cfg }

func (s *stubServer) GatePassed(*http.Request) bool { return s.gatePassed }

func (s *stubServer) SetGatePassed(_ http.ResponseWriter, _ *http.Request, passed bool) error {
	s.gatePassed = passed
	return nil
}

func (s *stubServer) Credential(*http.Request) (int64, string, bool) {
	return s.credentialID, s.credentialToken, s.hasCredential
}

func (s *stubServer) SetCredential(_ http.ResponseWriter, responseID int64, token string) error {
	s.credentialID = responseID
	s.credentialToken = token
	s.hasCredential = true
	return nil
}

func (s *stubServer) ClearCredential(http.ResponseWriter) {
	s.hasCredential = false
}

func (s *stubServer) IsAdmin(*http.Request) bool { return true }

func setupStubServer(t *testing.T, guests ...string) *stubServer {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if len(guests) > 0 {
		if err := db.ReplaceGuestList(guests, time.Now()); err != nil {
			t.Fatalf("Failed to seed guest list: %v", err)
		}
	}

	return &stubServer{db: db, cfg: &config.Config{SeedGuests: guests}}
}

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleSurveySubmitRequiresGate(t *testing.T) {
	s := setupStubServer(t, "Anna")

	rec := postForm(t, HandleSurveySubmit(s), "/survey", url.Values{
		"participant":  {"Anna"},
		"people_count": {"2"},
		"food_text":    {"Kuchen"},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status got = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !strings.Contains(rec.Header().Get("Location"), "error=") {
		t.Errorf("redirect location got = %q, want an error", rec.Header().Get("Location"))
	}

	responses, err := s.db.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses() error = %v", err)
	}
	if len(responses) != 0 {
		t.Error("submission without gate pass must not be stored")
	}
}

func TestHandleSurveySubmitStoresCredential(t *testing.T) {
	s := setupStubServer(t, "Anna")
	s.gatePassed = true

	rec := postForm(t, HandleSurveySubmit(s), "/survey", url.Values{
		"participant":  {"Anna"},
		"people_count": {"2"},
		"food_text":    {"kuchen"},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status got = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if rec.Header().Get("Location") != "/?submitted=1" {
		t.Errorf("redirect location got = %q, want /?submitted=1", rec.Header().Get("Location"))
	}
	if !s.hasCredential {
		t.Fatal("submission must hand out a self-service credential")
	}

	resp, err := s.db.GetResponseByToken(s.credentialID, s.credentialToken)
	if err != nil {
		t.Fatalf("GetResponseByToken() error = %v", err)
	}
	if resp == nil || resp.FoodText != "Kuchen" {
		t.Errorf("stored response got = %+v, want normalized Kuchen", resp)
	}
}

func TestHandleSurveySubmitRejectsNonGuest(t *testing.T) {
	s := setupStubServer(t, "Anna")
	s.gatePassed = true

	rec := postForm(t, HandleSurveySubmit(s), "/survey", url.Values{
		"participant":  {"Unbekannt"},
		"people_count": {"2"},
		"food_text":    {"Kuchen"},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status got = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !strings.Contains(rec.Header().Get("Location"), "error=") {
		t.Errorf("redirect location got = %q, want an error", rec.Header().Get("Location"))
	}
}

func TestHandleGateCheck(t *testing.T) {
	s := setupStubServer(t, "Anna")
	if err := s.db.SeedSettings(); err != nil {
		t.Fatalf("SeedSettings() error = %v", err)
	}

	rec := postForm(t, HandleGateCheck(s), "/gate", url.Values{"answer_0": {"Ilse"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status got = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if !s.gatePassed {
		t.Error("correct answer must unlock the gate")
	}

	// A wrong answer clears the earlier unlock.
	rec = postForm(t, HandleGateCheck(s), "/gate", url.Values{"answer_0": {"falsch"}})
	if !strings.Contains(rec.Header().Get("Location"), "error=") {
		t.Errorf("redirect location got = %q, want an error", rec.Header().Get("Location"))
	}
	if s.gatePassed {
		t.Error("wrong answer must clear the gate unlock")
	}
}

func TestHandleSurveyUpdateAndDelete(t *testing.T) {
	s := setupStubServer(t, "Anna", "Bernd")
	s.gatePassed = true

	id, token, err := s.db.SubmitResponse("Anna", 2, "Kuchen", time.Now())
	if err != nil {
		t.Fatalf("SubmitResponse() error = %v", err)
	}
	s.credentialID = id
	s.credentialToken = token
	s.hasCredential = true

	rec := postForm(t, HandleSurveyUpdate(s), "/survey/update", url.Values{
		"participant":  {"Bernd"},
		"people_count": {"4"},
		"food_text":    {"Salat"},
	})
	if rec.Header().Get("Location") != "/?updated=1" {
		t.Errorf("update redirect got = %q, want /?updated=1", rec.Header().Get("Location"))
	}

	resp, err := s.db.GetResponseByToken(id, token)
	if err != nil {
		t.Fatalf("GetResponseByToken() error = %v", err)
	}
	if resp == nil || resp.ParticipantName != "Bernd" || resp.PeopleCount != 4 {
		t.Errorf("updated response got = %+v", resp)
	}

	rec = postForm(t, HandleSurveyDelete(s), "/survey/delete", nil)
	if rec.Header().Get("Location") != "/?deleted=1" {
		t.Errorf("delete redirect got = %q, want /?deleted=1", rec.Header().Get("Location"))
	}
	if s.hasCredential {
		t.Error("credential must be cleared after delete")
	}

	resp, err = s.db.GetResponseByToken(id, token)
	if err != nil {
		t.Fatalf("GetResponseByToken() error = %v", err)
	}
	if resp != nil {
		t.Error("response must be gone after delete")
	}
}

func TestHandleSurveyRendersGateWhenLocked(t *testing.T) {
	s := setupStubServer(t, "Anna")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	HandleSurvey(s)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status got = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Torfrage") {
		t.Error("locked page must show the gate form")
	}
	if strings.Contains(body, `action="/survey"`) {
		t.Error("locked page must not show the survey form")
	}

	s.gatePassed = true
	rec = httptest.NewRecorder()
	HandleSurvey(s)(rec, req)
	if !strings.Contains(rec.Body.String(), `action="/survey"`) {
		t.Error("unlocked page must show the survey form")
	}
}
