// Package handlers is the HTTP surface. Handlers decode the cookie into an
// explicit session state, run the state machine, re-encode, and answer with
// JSON envelopes; all business rules live in the packages they call.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"annuaire/backend/config"
	"annuaire/backend/session"
	"annuaire/backend/store"

	"github.com/gorilla/sessions"
)

var Store *sessions.CookieStore

const sessionName = "annuaire-session"

// InitSession configures the cookie store with the configured secret and
// timeout. A missing or short secret is a startup error, not a silent
// fallback.
func InitSession() error {
	secret := config.C.Session.Secret
	if secret == "" {
		return errors.New("session secret is not configured (set session.secret or SESSION_SECRET)")
	}
	if len(secret) < 32 {
		return errors.New("session secret must be at least 32 characters")
	}

	Store = sessions.NewCookieStore([]byte(secret))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(config.C.Session.Timeout.Seconds()),
		HttpOnly: true,
		Secure:   config.C.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	}
	return nil
}

// App bundles the stores and the state machine behind the HTTP surface.
type App struct {
	Users   *store.Users
	Flags   *store.Flags
	Machine *session.Machine
}

func NewApp() *App {
	users := store.NewUsers(config.C.UsersPath())
	return &App{
		Users: users,
		Flags: store.NewFlags(config.C.FlagsPath()),
		Machine: &session.Machine{
			Users: users,
			UnlockSecret: func() (string, error) {
				return store.ReadUnlockSecret(config.C.UnlockPath())
			},
			InvalidateOnNav: config.C.Session.InvalidateOnNav,
		},
	}
}

// getState decodes the session cookie into a state value. Anything missing
// or of the wrong type reads as the zero (anonymous) state.
func getState(r *http.Request) session.State {
	s, _ := Store.Get(r, sessionName)
	var st session.State
	if v, ok := s.Values["stage"].(int); ok {
		st.Stage = session.Stage(v)
	}
	if v, ok := s.Values["user_id"].(string); ok {
		st.UserID = v
	}
	if v, ok := s.Values["privileged"].(bool); ok {
		st.Privileged = v
	}
	if v, ok := s.Values["just_authed"].(bool); ok {
		st.JustAuthenticated = v
	}
	return st
}

func saveState(w http.ResponseWriter, r *http.Request, st session.State) {
	s, _ := Store.Get(r, sessionName)
	s.Values["stage"] = int(st.Stage)
	s.Values["user_id"] = st.UserID
	s.Values["privileged"] = st.Privileged
	s.Values["just_authed"] = st.JustAuthenticated
	s.Save(r, w)
}

func clearSession(w http.ResponseWriter, r *http.Request) {
	s, _ := Store.Get(r, sessionName)
	s.Values = make(map[interface{}]interface{})
	s.Options.MaxAge = -1
	s.Save(r, w)
}

// Response is the generic JSON envelope.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Authenticated gates request handlers that need a completed login.
func (a *App) Authenticated(w http.ResponseWriter, r *http.Request) bool {
	st := getState(r)
	if st.Stage != session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "not logged in"})
		return false
	}
	return true
}

// Navigation gates page-level views. It applies the invalidation rule
// first: an authenticated session survives only the single view following
// its login, so a reload forces a fresh login.
func (a *App) Navigation(w http.ResponseWriter, r *http.Request) bool {
	st := getState(r)
	if !a.Machine.Navigate(&st) {
		clearSession(w, r)
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "session expired, log in again"})
		return false
	}
	if st.Stage != session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "not logged in"})
		return false
	}
	saveState(w, r, st) // persist the consumed one-shot marker
	return true
}

// Admin gates the admin surface: completed login plus the admin role,
// re-checked against the credential file on every request.
func (a *App) Admin(w http.ResponseWriter, r *http.Request) bool {
	st := getState(r)
	if st.Stage != session.Authenticated {
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "not logged in"})
		return false
	}
	u, err := a.Machine.CurrentUser(&st)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error"})
		return false
	}
	if u == nil || !u.IsAdmin() {
		writeJSON(w, http.StatusForbidden, Response{Status: "error", Message: "admin access required"})
		return false
	}
	return true
}

// version reads the deployed version string shown by the UI footer.
func version() string {
	data, err := os.ReadFile(config.C.VersionPath())
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}
