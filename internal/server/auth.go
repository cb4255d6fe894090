package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/AlexTLDR/potluck/internal/server/handlers"
	"golang.org/x/crypto/bcrypt"
)

// handleAdmin serves the login form, processes login attempts and shows the
// admin panel once the session is authorized. Failed attempts are counted per
// IP; three failures within the retention window block further attempts.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if s.IsAdmin(r) {
		handlers.HandleAdminPanel(s)(w, r)
		return
	}

	if r.Method != http.MethodPost {
		handlers.RenderAdminLogin(w, "")
		return
	}

	ip := s.ClientIP(r)

	blocked, err := s.db.IsBlocked(ip)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check login block")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if blocked {
		s.logger.Warn().Str("ip", ip).Msg("blocked login attempt")
		handlers.RenderAdminLogin(w, "Zu viele Fehlversuche. Bitte später erneut versuchen.")
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if username == s.config.AdminUser &&
		bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)) == nil {
		if err := s.db.ResetLoginAttempts(ip); err != nil {
			s.logger.Warn().Err(err).Str("ip", ip).Msg("failed to reset login attempts")
		}
		if err := s.setAdmin(w, r, true); err != nil {
			http.Error(w, "Failed to save session", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	attempts, err := s.db.RecordLoginFailure(ip, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to record login failure")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Info().Str("ip", ip).Int("attempts", attempts).Msg("failed admin login")
	handlers.RenderAdminLogin(w, "Login fehlgeschlagen.")
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	if err := s.setAdmin(w, r, false); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
