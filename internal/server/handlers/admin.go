package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/AlexTLDR/potluck/internal/database"
)

// AdminServer extends Server with admin-specific methods
type AdminServer interface {
	Server
	IsAdmin(r *http.Request) bool
}

// parseID parses an ID string and returns an error if invalid
func parseID(idStr string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid ID format: %w", err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid ID: must be positive")
	}
	return id, nil
}

// parseFormID parses and validates a response ID from a POST form.
// Returns the ID and true if successful, or writes an error response and returns false
func parseFormID(r *http.Request, w http.ResponseWriter) (int64, bool) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return 0, false
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return 0, false
	}

	id, err := parseID(r.FormValue("response_id"))
	if err != nil {
		http.Error(w, "Invalid response ID", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

// RenderAdminLogin writes the admin login form, optionally with an error
// message. Exported because the server's auth flow renders it too.
func RenderAdminLogin(w http.ResponseWriter, errorMessage string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html>\n<html lang=\"de\">\n<head><meta charset=\"utf-8\"><title>Adminbereich</title></head>\n<body>\n<h1>Adminbereich</h1>\n")
	if errorMessage != "" {
		fmt.Fprintf(w, "<p class=\"error\">%s</p>\n", html.EscapeString(errorMessage))
	}
	fmt.Fprint(w, `<form method="post" action="/admin">
<label>Benutzername</label><input type="text" name="username" required>
<label>Passwort</label><input type="password" name="password" required>
<button type="submit">Einloggen</button>
</form>
</body>
</html>
`)
}

// HandleAdminPanel renders the response table plus the guest-list and
// settings forms.
func HandleAdminPanel(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := s.GetDB()

		responses, err := db.ListResponses()
		if err != nil {
			http.Error(w, "Failed to load responses", http.StatusInternalServerError)
			return
		}

		guests, err := db.ListGuestNames()
		if err != nil {
			http.Error(w, "Failed to load guest list", http.StatusInternalServerError)
			return
		}

		settings, err := db.GetSettings()
		if err != nil {
			http.Error(w, "Failed to load settings", http.StatusInternalServerError)
			return
		}

		renderAdminPanel(w, r, responses, guests, settings)
	}
}

// HandleAdminUpdateResponse edits one response on behalf of the admin.
func HandleAdminUpdateResponse(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseFormID(r, w)
		if !ok {
			return
		}

		form, err := parseSurveyForm(r)
		if err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form.participant = strings.TrimSpace(r.FormValue("participant_name"))

		err = s.GetDB().UpdateResponseByAdmin(id, form.participant, form.peopleCount, form.foodText, time.Now())
		if err != nil {
			if msg, ok := userError(err); ok {
				redirectWithError(w, r, "/admin", msg)
				return
			}
			http.Error(w, "Failed to update response", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// HandleAdminDeleteResponse deletes one response on behalf of the admin.
func HandleAdminDeleteResponse(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseFormID(r, w)
		if !ok {
			return
		}

		if err := s.GetDB().DeleteResponseByAdmin(id); err != nil {
			http.Error(w, "Failed to delete response", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// HandleAdminReplaceGuests swaps the whole guest list for the submitted
// names, one per line. Blank lines are dropped.
func HandleAdminReplaceGuests(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		var names []string
		for _, line := range strings.Split(r.FormValue("guests"), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				names = append(names, line)
			}
		}

		if err := s.GetDB().ReplaceGuestList(names, time.Now()); err != nil {
			if msg, ok := userError(err); ok {
				redirectWithError(w, r, "/admin", msg)
				return
			}
			http.Error(w, "Failed to replace guest list", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// HandleAdminUpdateSettings stores the survey title, gate questions and
// rich-text contents. The question count is clamped to [1,3] here, per the
// settings manager's caller contract.
func HandleAdminUpdateSettings(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		title := strings.TrimSpace(r.FormValue("survey_title"))

		count := 1
		fmt.Sscanf(r.FormValue("question_count"), "%d", &count)
		if count < 1 {
			count = 1
		}
		if count > 3 {
			count = 3
		}

		questions := make([]database.GateQuestion, 0, count)
		for i := 0; i < count; i++ {
			questions = append(questions, database.GateQuestion{
				Question: strings.TrimSpace(r.FormValue(fmt.Sprintf("question_%d", i))),
				Answer:   strings.TrimSpace(r.FormValue(fmt.Sprintf("answer_%d", i))),
			})
		}

		err := s.GetDB().UpdateSettings(title, count, questions,
			r.FormValue("hints_content"), r.FormValue("footer_content"))
		if err != nil {
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// HandleAdminActivity shows retained per-IP visit counts and login failures.
func HandleAdminActivity(s AdminServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := s.GetDB()

		attempts, err := db.ListLoginAttempts()
		if err != nil {
			http.Error(w, "Failed to load login attempts", http.StatusInternalServerError)
			return
		}

		visits, err := db.CountVisitsByIP()
		if err != nil {
			http.Error(w, "Failed to load page visits", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!doctype html>\n<html lang=\"de\">\n<head><meta charset=\"utf-8\"><title>Aktivität</title></head>\n<body>\n<h1>Aktivität (24h)</h1>\n<p><a href=\"/admin\">Zurück</a></p>\n")

		fmt.Fprint(w, "<h2>Fehlgeschlagene Logins</h2>\n<table><tr><th>IP</th><th>Versuche</th><th>Letzter Versuch</th></tr>\n")
		for _, attempt := range attempts {
			fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>\n",
				html.EscapeString(attempt.IPAddress), attempt.AttemptCount, html.EscapeString(attempt.LastAttemptAt))
		}
		fmt.Fprint(w, "</table>\n")

		fmt.Fprint(w, "<h2>Seitenaufrufe</h2>\n<table><tr><th>IP</th><th>Aufrufe</th><th>Zuletzt</th></tr>\n")
		for _, visit := range visits {
			fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>\n",
				html.EscapeString(visit.IPAddress), visit.Visits, html.EscapeString(visit.LastVisit))
		}
		fmt.Fprint(w, "</table>\n</body>\n</html>\n")
	}
}

func renderAdminPanel(w http.ResponseWriter, r *http.Request, responses []*database.ResponseWithParticipant, guests []string, settings database.Settings) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!doctype html>\n<html lang=\"de\">\n<head><meta charset=\"utf-8\"><title>Adminbereich</title></head>\n<body>\n<h1>Adminbereich</h1>\n")
	fmt.Fprint(w, "<p><a href=\"/admin/activity\">Aktivität</a></p>\n<form method=\"post\" action=\"/admin/logout\"><button type=\"submit\">Abmelden</button></form>\n")

	if msg := r.URL.Query().Get("error"); msg != "" {
		fmt.Fprintf(w, "<p class=\"error\">%s</p>\n", html.EscapeString(msg))
	}

	fmt.Fprint(w, "<h2>Antworten</h2>\n<table><tr><th>Teilnehmer</th><th>Personen</th><th>Essen</th><th>Zeitpunkt</th><th>Aktionen</th></tr>\n")
	for _, resp := range responses {
		fmt.Fprint(w, "<tr><form method=\"post\" action=\"/admin/responses/update\">\n")
		fmt.Fprintf(w, "<td><input type=\"text\" name=\"participant_name\" value=\"%s\" required></td>\n", html.EscapeString(resp.ParticipantName))
		fmt.Fprintf(w, "<td><input type=\"number\" name=\"people_count\" min=\"1\" value=\"%d\" required></td>\n", resp.PeopleCount)
		fmt.Fprintf(w, "<td><input type=\"text\" name=\"food_text\" value=\"%s\" required></td>\n", html.EscapeString(resp.FoodText))
		fmt.Fprintf(w, "<td>%s</td>\n", html.EscapeString(resp.CreatedAt))
		fmt.Fprintf(w, "<td><input type=\"hidden\" name=\"response_id\" value=\"%d\"><button type=\"submit\">Speichern</button></form>\n", resp.ID)
		fmt.Fprintf(w, "<form method=\"post\" action=\"/admin/responses/delete\"><input type=\"hidden\" name=\"response_id\" value=\"%d\"><button type=\"submit\">Löschen</button></form></td></tr>\n", resp.ID)
	}
	fmt.Fprint(w, "</table>\n")

	fmt.Fprint(w, "<h2>Gästeliste</h2>\n<form method=\"post\" action=\"/admin/guests\">\n<textarea name=\"guests\" rows=\"8\">")
	fmt.Fprint(w, html.EscapeString(strings.Join(guests, "\n")))
	fmt.Fprint(w, "</textarea>\n<button type=\"submit\">Liste ersetzen</button>\n</form>\n")

	fmt.Fprint(w, "<h2>Einstellungen</h2>\n<form method=\"post\" action=\"/admin/settings\">\n")
	fmt.Fprintf(w, "<label>Titel</label><input type=\"text\" name=\"survey_title\" value=\"%s\" required>\n", html.EscapeString(settings.SurveyTitle))
	fmt.Fprintf(w, "<label>Anzahl Torfragen</label><input type=\"number\" name=\"question_count\" min=\"1\" max=\"3\" value=\"%d\" required>\n", settings.GateQuestionCount)
	for i, question := range settings.GateQuestions {
		if i >= 3 {
			break
		}
		fmt.Fprintf(w, "<label>Frage %d</label><input type=\"text\" name=\"question_%d\" value=\"%s\">\n", i+1, i, html.EscapeString(question.Question))
		fmt.Fprintf(w, "<label>Antwort %d</label><input type=\"text\" name=\"answer_%d\" value=\"%s\">\n", i+1, i, html.EscapeString(question.Answer))
	}
	fmt.Fprintf(w, "<label>Hinweise</label><textarea name=\"hints_content\" rows=\"6\">%s</textarea>\n", html.EscapeString(settings.HintsContent))
	fmt.Fprintf(w, "<label>Fußzeile</label><textarea name=\"footer_content\" rows=\"4\">%s</textarea>\n", html.EscapeString(settings.FooterContent))
	fmt.Fprint(w, "<button type=\"submit\">Einstellungen speichern</button>\n</form>\n</body>\n</html>\n")
}
