package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/AlexTLDR/potluck/internal/config"
	"github.com/AlexTLDR/potluck/internal/database"
	"github.com/AlexTLDR/potluck/internal/server/handlers"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

const (
	sessionName    = "survey-session"
	credentialName = "survey-credential"

	// Visit logs and login attempts are retained for this long; a blocked IP
	// unblocks once its last failure ages out.
	retentionWindow = 24 * time.Hour
)

type Server struct {
	config       *config.Config
	db           *database.DB
	sessionStore *sessions.CookieStore
	credentials  *securecookie.SecureCookie
	router       *http.ServeMux
	logger       zerolog.Logger
}

func New(cfg *config.Config, db *database.DB, logger zerolog.Logger) *Server {
	secret := []byte(cfg.SessionSecret)
	s := &Server{
		config:       cfg,
		db:           db,
		sessionStore: sessions.NewCookieStore(secret),
		credentials:  securecookie.New(secret, nil),
		router:       http.NewServeMux(),
		logger:       logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.HandleFunc("/", s.track(handlers.HandleSurvey(s)))
	s.router.HandleFunc("/gate", s.track(handlers.HandleGateCheck(s)))
	s.router.HandleFunc("/survey", s.track(handlers.HandleSurveySubmit(s)))
	s.router.HandleFunc("/survey/update", s.track(handlers.HandleSurveyUpdate(s)))
	s.router.HandleFunc("/survey/delete", s.track(handlers.HandleSurveyDelete(s)))

	// Admin routes
	s.router.HandleFunc("/admin", s.track(s.handleAdmin))
	s.router.HandleFunc("/admin/logout", s.handleAdminLogout)
	s.router.HandleFunc("/admin/responses/update", s.requireAdmin(handlers.HandleAdminUpdateResponse(s)))
	s.router.HandleFunc("/admin/responses/delete", s.requireAdmin(handlers.HandleAdminDeleteResponse(s)))
	s.router.HandleFunc("/admin/guests", s.requireAdmin(handlers.HandleAdminReplaceGuests(s)))
	s.router.HandleFunc("/admin/settings", s.requireAdmin(handlers.HandleAdminUpdateSettings(s)))
	s.router.HandleFunc("/admin/activity", s.requireAdmin(handlers.HandleAdminActivity(s)))
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// GetDB implements handlers.Server
func (s *Server) GetDB() *database.DB {
	return s.db
}

// GetConfig implements handlers.Server
func (s *Server) GetConfig() *config.Config {
	return s.config
}

// track purges records older than the retention window and logs the visit
// before the handler runs, so throttle reads never see an expired block.
func (s *Server) track(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		ip := s.ClientIP(r)

		if err := s.db.PurgeStale(now.Add(-retentionWindow)); err != nil {
			s.logger.Error().Err(err).Msg("failed to purge stale records")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := s.db.LogPageVisit(ip, r.URL.Path, now); err != nil {
			// Tracking only, don't fail the request.
			s.logger.Warn().Err(err).Str("ip", ip).Msg("failed to log page visit")
		}

		next(w, r)
	}
}

// requireAdmin redirects to the login page unless the session is authorized.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.IsAdmin(r) {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// ClientIP implements handlers.Server. The first X-Forwarded-For entry wins
// when the app runs behind a proxy.
func (s *Server) ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GatePassed implements handlers.Server
func (s *Server) GatePassed(r *http.Request) bool {
	session, _ := s.sessionStore.Get(r, sessionName)
	passed, _ := session.Values["gate_passed"].(bool)
	return passed
}

// SetGatePassed implements handlers.Server. A failed gate check clears any
// prior unlock.
func (s *Server) SetGatePassed(w http.ResponseWriter, r *http.Request, passed bool) error {
	session, _ := s.sessionStore.Get(r, sessionName)
	if passed {
		session.Values["gate_passed"] = true
	} else {
		delete(session.Values, "gate_passed")
	}
	return session.Save(r, w)
}

// IsAdmin implements handlers.AdminServer
func (s *Server) IsAdmin(r *http.Request) bool {
	session, _ := s.sessionStore.Get(r, sessionName)
	admin, _ := session.Values["admin_authenticated"].(bool)
	return admin
}

func (s *Server) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) error {
	session, _ := s.sessionStore.Get(r, sessionName)
	if admin {
		session.Values["admin_authenticated"] = true
	} else {
		delete(session.Values, "admin_authenticated")
	}
	return session.Save(r, w)
}

// credential is the durable (responseID, token) pair granting self-service
// access to exactly one response.
type credential struct {
	ResponseID int64  `json:"response_id"`
	Token      string `json:"token"`
}

// Credential implements handlers.Server
func (s *Server) Credential(r *http.Request) (int64, string, bool) {
	cookie, err := r.Cookie(credentialName)
	if err != nil {
		return 0, "", false
	}

	var cred credential
	if err := s.credentials.Decode(credentialName, cookie.Value, &cred); err != nil {
		return 0, "", false
	}

	return cred.ResponseID, cred.Token, true
}

// SetCredential implements handlers.Server
func (s *Server) SetCredential(w http.ResponseWriter, responseID int64, token string) error {
	encoded, err := s.credentials.Encode(credentialName, credential{
		ResponseID: responseID,
		Token:      token,
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     credentialName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 365,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCredential implements handlers.Server
func (s *Server) ClearCredential(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     credentialName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
