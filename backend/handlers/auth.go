package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"annuaire/backend/session"
)

// Login runs the password stage. Both failure reasons are logged apart but
// answered with the same message, so a caller cannot probe which accounts
// exist.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("username"))
	password := strings.TrimSpace(r.FormValue("password"))

	st := getState(r)
	err := a.Machine.SubmitPassword(&st, id, password)
	switch {
	case errors.Is(err, session.ErrUnknownUser):
		slog.Warn("login failed: unknown user", "source", "auth", "user_id", id)
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "invalid credentials"})
		return
	case errors.Is(err, session.ErrWrongPassword):
		slog.Warn("login failed: wrong password", "source", "auth", "user_id", id)
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "invalid credentials"})
		return
	case err != nil:
		slog.Error("login failed", "source", "auth", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error"})
		return
	}

	saveState(w, r, st)
	if st.Stage == session.Authenticated {
		// No second factor on this account.
		slog.Info("user logged in", "source", "auth", "user_id", id)
		writeJSON(w, http.StatusOK, Response{Status: "ok", Data: map[string]string{"next": "app"}})
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: map[string]string{"next": "2fa"}})
}

// TwoFactor runs the second stage for the pending login.
func (a *App) TwoFactor(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.FormValue("code"))

	st := getState(r)
	err := a.Machine.SubmitSecondFactor(&st, code)
	switch {
	case errors.Is(err, session.ErrNoPendingLogin):
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "log in first"})
		return
	case errors.Is(err, session.ErrUnknownUser):
		// Account removed between the two stages.
		slog.Warn("second factor failed: account gone", "source", "auth", "user_id", st.UserID)
		saveState(w, r, st)
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "log in first"})
		return
	case errors.Is(err, session.ErrInvalidCode):
		slog.Warn("second factor failed: invalid code", "source", "auth", "user_id", st.UserID)
		writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Message: "invalid code"})
		return
	case err != nil:
		slog.Error("second factor failed", "source", "auth", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error"})
		return
	}

	saveState(w, r, st)
	slog.Info("user logged in", "source", "auth", "user_id", st.UserID)
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: map[string]string{"next": "app"}})
}

// AppPage is the main page view; the Navigation gate in front of it applies
// the session invalidation rule.
func (a *App) AppPage(w http.ResponseWriter, r *http.Request) {
	st := getState(r)
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: map[string]any{
		"username": st.UserID,
		"version":  version(),
	}})
}

// Status reports who is logged in and whether the session is unlocked.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	st := getState(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"username":   st.UserID,
		"privileged": st.Privileged,
		"version":    version(),
	})
}

// Logout clears the session unconditionally.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	st := getState(r)
	if st.UserID != "" {
		slog.Info("user logged out", "source", "auth", "user_id", st.UserID)
	}
	a.Machine.Logout(&st)
	clearSession(w, r)
	writeJSON(w, http.StatusOK, Response{Status: "ok"})
}
