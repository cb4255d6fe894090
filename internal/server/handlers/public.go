package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AlexTLDR/potluck/internal/config"
	"github.com/AlexTLDR/potluck/internal/database"
	"github.com/AlexTLDR/potluck/internal/gate"
	"github.com/AlexTLDR/potluck/internal/richtext"
)

// Server is the surface the public handlers need from the HTTP server.
type Server interface {
	GetDB() *database.DB
	GetConfig() *config.Config
	GatePassed(r *http.Request) bool
	SetGatePassed(w http.ResponseWriter, r *http.Request, passed bool) error
	Credential(r *http.Request) (responseID int64, token string, ok bool)
	SetCredential(w http.ResponseWriter, responseID int64, token string) error
	ClearCredential(w http.ResponseWriter)
}

// userError extracts the user-facing message from a recoverable input error.
func userError(err error) (string, bool) {
	var validationErr *database.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error(), true
	}
	return "", false
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, message string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// surveyForm holds the parsed survey submission fields, shared by the submit
// and self-service update flows.
type surveyForm struct {
	participant string
	peopleCount int
	foodText    string
}

func parseSurveyForm(r *http.Request) (*surveyForm, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form data: %w", err)
	}

	peopleCount, _ := strconv.Atoi(r.FormValue("people_count"))

	return &surveyForm{
		participant: strings.TrimSpace(r.FormValue("participant")),
		peopleCount: peopleCount,
		foodText:    strings.TrimSpace(r.FormValue("food_text")),
	}, nil
}

// HandleSurvey renders the survey page: gate form when locked, survey form
// when unlocked, edit form when the visitor holds a valid credential.
func HandleSurvey(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		db := s.GetDB()
		now := time.Now()

		// First-deployment seeding runs on every page load.
		if err := db.SeedGuestList(s.GetConfig().SeedGuests, now); err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := db.SeedSettings(); err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		settings, err := db.GetSettings()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		guests, err := db.ListGuestNames()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		foods, err := db.ListFoodEntries()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// A valid credential switches the page into edit mode.
		var own *database.ResponseWithParticipant
		if responseID, token, ok := s.Credential(r); ok {
			own, err = db.GetResponseByToken(responseID, token)
			if err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if own == nil {
				s.ClearCredential(w)
			}
		}

		renderSurveyPage(w, r, settings, guests, foods, own, s.GatePassed(r))
	}
}

// HandleGateCheck evaluates the visitor's gate answers and stores the result
// in the session. A wrong answer clears any prior unlock.
func HandleGateCheck(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		settings, err := s.GetDB().GetSettings()
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		answers := make([]string, settings.GateQuestionCount)
		for i := range answers {
			answers[i] = r.FormValue("answer_" + strconv.Itoa(i))
		}

		passed := gate.Evaluate(answers, settings.GateQuestions, settings.GateQuestionCount)
		if err := s.SetGatePassed(w, r, passed); err != nil {
			http.Error(w, "Failed to save session", http.StatusInternalServerError)
			return
		}

		if !passed {
			redirectWithError(w, r, "/", "Bitte die Torfrage richtig beantworten.")
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleSurveySubmit stores a new response and hands the visitor a durable
// self-service credential for it.
func HandleSurveySubmit(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		if !s.GatePassed(r) {
			redirectWithError(w, r, "/", "Bitte zuerst die Torfrage beantworten.")
			return
		}

		form, err := parseSurveyForm(r)
		if err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		responseID, token, err := s.GetDB().SubmitResponse(form.participant, form.peopleCount, form.foodText, time.Now())
		if err != nil {
			if msg, ok := userError(err); ok {
				redirectWithError(w, r, "/", msg)
				return
			}
			http.Error(w, "Failed to save response", http.StatusInternalServerError)
			return
		}

		if err := s.SetCredential(w, responseID, token); err != nil {
			http.Error(w, "Failed to save credential", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/?submitted=1", http.StatusSeeOther)
	}
}

// HandleSurveyUpdate edits the response belonging to the visitor's credential.
func HandleSurveyUpdate(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		responseID, token, ok := s.Credential(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		form, err := parseSurveyForm(r)
		if err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		err = s.GetDB().UpdateResponseByToken(responseID, token, form.participant, form.peopleCount, form.foodText, time.Now())
		if err != nil {
			var notFound *database.NotFoundError
			if errors.As(err, &notFound) {
				// The response is gone; fall back to the submit flow.
				s.ClearCredential(w)
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			if msg, ok := userError(err); ok {
				redirectWithError(w, r, "/", msg)
				return
			}
			http.Error(w, "Failed to update response", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/?updated=1", http.StatusSeeOther)
	}
}

// HandleSurveyDelete withdraws the response belonging to the visitor's
// credential.
func HandleSurveyDelete(s Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		responseID, token, ok := s.Credential(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		err := s.GetDB().DeleteResponseByToken(responseID, token)
		if err != nil {
			var notFound *database.NotFoundError
			if !errors.As(err, &notFound) {
				http.Error(w, "Failed to delete response", http.StatusInternalServerError)
				return
			}
		}

		s.ClearCredential(w)
		http.Redirect(w, r, "/?deleted=1", http.StatusSeeOther)
	}
}

func renderSurveyPage(w http.ResponseWriter, r *http.Request, settings database.Settings, guests, foods []string, own *database.ResponseWithParticipant, gatePassed bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	title := html.EscapeString(settings.SurveyTitle)
	fmt.Fprintf(w, "<!doctype html>\n<html lang=\"de\">\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n<h1>%s</h1>\n", title, title)

	if msg := r.URL.Query().Get("error"); msg != "" {
		fmt.Fprintf(w, "<p class=\"error\">%s</p>\n", html.EscapeString(msg))
	}
	switch {
	case r.URL.Query().Get("submitted") == "1":
		fmt.Fprint(w, "<p class=\"success\">Danke! Deine Antwort wurde gespeichert.</p>\n")
	case r.URL.Query().Get("updated") == "1":
		fmt.Fprint(w, "<p class=\"success\">Deine Antwort wurde aktualisiert.</p>\n")
	case r.URL.Query().Get("deleted") == "1":
		fmt.Fprint(w, "<p class=\"success\">Deine Antwort wurde gelöscht.</p>\n")
	}

	if hints := richtext.Render(settings.HintsContent); hints != "" {
		fmt.Fprintf(w, "<section class=\"hints\">%s</section>\n", hints)
	}

	if !gatePassed {
		fmt.Fprint(w, "<section><h2>Torfrage</h2>\n<form method=\"post\" action=\"/gate\">\n")
		for i := 0; i < settings.GateQuestionCount; i++ {
			fmt.Fprintf(w, "<label>%s</label><input type=\"text\" name=\"answer_%d\" required>\n",
				html.EscapeString(settings.GateQuestions[i].Question), i)
		}
		fmt.Fprint(w, "<button type=\"submit\">Prüfen</button>\n</form></section>\n")
	} else if own != nil {
		fmt.Fprint(w, "<section><h2>Deine Antwort bearbeiten</h2>\n<form method=\"post\" action=\"/survey/update\">\n")
		writeSurveyFields(w, guests, own.ParticipantName, own.PeopleCount, own.FoodText)
		fmt.Fprint(w, "<button type=\"submit\">Speichern</button>\n</form>\n")
		fmt.Fprint(w, "<form method=\"post\" action=\"/survey/delete\"><button type=\"submit\">Antwort löschen</button></form></section>\n")
	} else {
		fmt.Fprint(w, "<section><h2>Teilnahme &amp; Umfrage</h2>\n")
		if len(foods) > 0 {
			fmt.Fprint(w, "<p>Bereits eingetragen:</p><ul>\n")
			for _, food := range foods {
				fmt.Fprintf(w, "<li>%s</li>\n", html.EscapeString(food))
			}
			fmt.Fprint(w, "</ul>\n")
		}
		fmt.Fprint(w, "<form method=\"post\" action=\"/survey\">\n")
		writeSurveyFields(w, guests, "", 0, "")
		fmt.Fprint(w, "<button type=\"submit\">Antwort speichern</button>\n</form></section>\n")
	}

	if footer := richtext.Render(settings.FooterContent); footer != "" {
		fmt.Fprintf(w, "<footer>%s</footer>\n", footer)
	}

	fmt.Fprint(w, "</body>\n</html>\n")
}

func writeSurveyFields(w http.ResponseWriter, guests []string, selectedName string, peopleCount int, foodText string) {
	fmt.Fprint(w, "<label>Teilnehmer auswählen</label>\n<select name=\"participant\" required>\n<option value=\"\">Bitte wählen</option>\n")
	for _, guest := range guests {
		selected := ""
		if guest == selectedName {
			selected = " selected"
		}
		fmt.Fprintf(w, "<option value=\"%s\"%s>%s</option>\n", html.EscapeString(guest), selected, html.EscapeString(guest))
	}
	fmt.Fprint(w, "</select>\n")

	people := ""
	if peopleCount > 0 {
		people = strconv.Itoa(peopleCount)
	}
	fmt.Fprintf(w, "<label>Wie viele Personen bringt ihr mit?</label>\n<input type=\"number\" name=\"people_count\" min=\"1\" value=\"%s\" required>\n", people)
	fmt.Fprintf(w, "<label>Welches Essen bringt ihr mit?</label>\n<input type=\"text\" name=\"food_text\" value=\"%s\" placeholder=\"z.B. Kartoffelsalat\" required>\n", html.EscapeString(foodText))
}
