package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ETAnderson/deskflow/internal/state"
)

// GetBatch serves status polling: lifecycle state, counters, and the stored
// rejection details for one batch.
type GetBatch struct {
	Store state.Store
}

func (h GetBatch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	batchID := strings.TrimSpace(chi.URLParam(r, "batchID"))
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "invalid_batch_id", "batch id missing")
		return
	}

	rec, ok, err := h.Store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_batch_failed", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type ListBatches struct {
	Store state.Store
}

func (h ListBatches) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	items, err := h.Store.ListBatches(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_batches_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
