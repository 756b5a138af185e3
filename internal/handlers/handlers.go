package handlers

import (
	"context"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/middleware"
	"spendtrack/internal/models"
	"spendtrack/internal/session"
	"spendtrack/internal/storage"
	"spendtrack/internal/uploads"
	"spendtrack/internal/validate"

	"github.com/rs/zerolog"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	files        *uploads.Store
	templateDir  string
	secureCookie bool
	sessionTTL   time.Duration
	log          zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, files *uploads.Store, templateDir string, secureCookie bool, sessionTTL time.Duration, log zerolog.Logger) *Handlers {
	return &Handlers{
		db:           db,
		files:        files,
		templateDir:  templateDir,
		secureCookie: secureCookie,
		sessionTTL:   sessionTTL,
		log:          log,
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// authService builds the request-scoped auth service from the session
// cookie. The service caches its directory lookup, so it must never
// outlive the request.
func (h *Handlers) authService(r *http.Request) (*auth.Service, *session.Session) {
	token := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}
	sess := session.New(h.db, token, h.sessionTTL)
	return auth.New(h.db, sess), sess
}

// AuthMiddleware wraps handlers to require authentication. Browsers are
// redirected to the login page; JSON clients get a plain 401.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc, _ := h.authService(r)
		user := svc.User()
		if user == nil {
			if wantsJSON(r) {
				middleware.WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to categories
	svc, _ := h.authService(r)
	if svc.User() != nil {
		http.Redirect(w, r, "/categories", http.StatusFound)
		return
	}
	h.render(w, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	form := validate.LoginForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Username and password are required"})
		return
	}

	svc, sess := h.authService(r)
	if !svc.AttemptLogin(auth.Credentials{Username: form.Username, Password: form.Password}) {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid username or password"})
		return
	}

	// AttemptLogin rotated the token; hand the new one to the client.
	h.setSessionCookie(w, sess.Token())
	http.Redirect(w, r, "/categories", http.StatusFound)
}

// Logout handles user logout. The session principal is cleared
// unconditionally; a failed backend delete is logged, never surfaced.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	svc, _ := h.authService(r)
	svc.LogOut()
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		h.log.Error().Err(err).Str("view", viewName).Msg("Template error")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		h.log.Error().Err(err).Str("view", viewName).Msg("Template execution error")
	}
}
