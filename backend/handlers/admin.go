package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"annuaire/backend/store"
)

// adminResult is the (success, message) pair every admin operation answers
// with, whatever its outcome.
type adminResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeAdminResult(w http.ResponseWriter, ok bool, msg string) {
	status := http.StatusOK
	if !ok {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, adminResult{Success: ok, Message: msg})
}

// ListUsers returns every account; passwords and secrets never serialize.
func (a *App) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Users.Load()
	if err != nil {
		slog.Error("listing users failed", "source", "admin", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: users})
}

func (a *App) AddUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("id"))
	pwd := r.FormValue("pwd")
	secret := strings.TrimSpace(r.FormValue("totp"))
	role := strings.TrimSpace(r.FormValue("role"))

	err := a.Users.Add(id, pwd, secret, role)
	switch {
	case errors.Is(err, store.ErrEmptyID):
		writeAdminResult(w, false, "user id must not be empty")
	case errors.Is(err, store.ErrInvalidRole):
		writeAdminResult(w, false, "role must be user or admin")
	case errors.Is(err, store.ErrDuplicateID):
		writeAdminResult(w, false, "user already exists")
	case err != nil:
		slog.Error("adding user failed", "source", "admin", "user_id", id, "error", err.Error())
		writeAdminResult(w, false, "writing the user file failed")
	default:
		slog.Info("user added", "source", "admin", "user_id", id, "role", role)
		writeAdminResult(w, true, "user added")
	}
}

func (a *App) RemoveUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("id"))

	err := a.Users.Remove(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeAdminResult(w, false, "user not found")
	case err != nil:
		slog.Error("removing user failed", "source", "admin", "user_id", id, "error", err.Error())
		writeAdminResult(w, false, "writing the user file failed")
	default:
		slog.Info("user removed", "source", "admin", "user_id", id)
		writeAdminResult(w, true, "user removed")
	}
}

func (a *App) SetRole(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("id"))
	role := strings.TrimSpace(r.FormValue("role"))

	err := a.Users.SetRole(id, role)
	switch {
	case errors.Is(err, store.ErrInvalidRole):
		writeAdminResult(w, false, "role must be user or admin")
	case errors.Is(err, store.ErrNotFound):
		writeAdminResult(w, false, "user not found")
	case err != nil:
		slog.Error("changing role failed", "source", "admin", "user_id", id, "error", err.Error())
		writeAdminResult(w, false, "writing the user file failed")
	default:
		slog.Info("role changed", "source", "admin", "user_id", id, "role", role)
		writeAdminResult(w, true, "role updated")
	}
}

// ListFlags returns the current variables.
func (a *App) ListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := a.Flags.Read()
	if err != nil {
		slog.Error("reading variables failed", "source", "admin", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "ok", Data: flags})
}

func (a *App) SetFlag(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	value := r.FormValue("value")

	err := a.Flags.Set(name, value)
	switch {
	case errors.Is(err, store.ErrUnknownFlag):
		writeAdminResult(w, false, "unknown variable")
	case errors.Is(err, store.ErrInvalidValue):
		writeAdminResult(w, false, "value must be one of 0/1/true/false/yes/no/on/off")
	case err != nil:
		slog.Error("setting variable failed", "source", "admin", "flag", name, "error", err.Error())
		writeAdminResult(w, false, "writing the variables file failed")
	default:
		slog.Info("variable changed", "source", "admin", "flag", name, "value", value)
		writeAdminResult(w, true, "variable updated")
	}
}
