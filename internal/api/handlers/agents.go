package handlers

import (
	"net/http"

	"github.com/ETAnderson/deskflow/internal/state"
)

// ListAgents exposes the agent dimension (id, name, team, predominant shift)
// for the reporting frontend's rosters.
type ListAgents struct {
	Store state.Store
}

func (h ListAgents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_agents_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": agents})
}
