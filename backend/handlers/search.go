package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"annuaire/backend/config"
	"annuaire/backend/dataset"
	"annuaire/backend/search"
)

type searchResponse struct {
	Status string `json:"status"`
	Q      string `json:"q"`
	search.Result
}

// Search answers a query from the app page. The query text is first offered
// to the unlock check: a currently valid unlock code escalates the session
// and short-circuits instead of searching. That ordering is inherited from
// the input design, which funnels codes and search terms through the same
// field. A 6-digit search term that happens to collide with the current
// unlock code will unlock rather than search.
func (a *App) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.FormValue("q"))

	st := getState(r)
	if a.Machine.RequestPrivilege(&st, q) {
		saveState(w, r, st)
		slog.Info("privileged mode unlocked", "source", "search", "user_id", st.UserID)
		writeJSON(w, http.StatusOK, Response{Status: "unlocked"})
		return
	}

	optIn := false
	switch strings.ToLower(r.FormValue("debride")) {
	case "1", "true", "yes":
		optIn = true
	}

	primary := false
	if flags, err := a.Flags.Read(); err == nil {
		primary = flags["primary_dataset"]
	} else {
		slog.Error("reading variables file failed", "source", "search", "error", err.Error())
	}

	engine := &search.Engine{
		Data:     dataset.NewStore(config.C.DatasetPath(primary)),
		FoldCase: config.C.Search.FoldCase,
	}
	res, err := engine.Search(q, st.Privileged, optIn)
	if err != nil {
		slog.Error("search failed", "source", "search", "user_id", st.UserID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, Response{Status: "error", Message: "search failed"})
		return
	}

	if res.Mode == search.ModePrivileged {
		slog.Info("privileged search", "source", "search", "user_id", st.UserID, "matches", res.Matches)
	}
	writeJSON(w, http.StatusOK, searchResponse{Status: "ok", Q: q, Result: res})
}
