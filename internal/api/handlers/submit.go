package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/state"
)

type submitBatchRequest struct {
	Kind    string             `json:"kind"`
	Source  string             `json:"source"`
	Records []ingest.RawRecord `json:"records"`
}

type submitBatchResponse struct {
	BatchID   string             `json:"batch_id"`
	Status    domain.BatchStatus `json:"status"`
	Received  int                `json:"received,omitempty"`
	Duplicate bool               `json:"duplicate,omitempty"`
}

// SubmitBatch accepts a typed batch, persists it as pending, and returns the
// batch id immediately; processing happens in the worker. A payload that was
// already submitted (same content hash) hands back the original batch rather
// than queueing a second copy.
type SubmitBatch struct {
	Store        state.Store
	MaxBatchRows int
	Logger       zerolog.Logger
}

func (h SubmitBatch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be valid JSON")
		return
	}

	kind := domain.BatchKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind",
			fmt.Sprintf("kind must be %q or %q", domain.BatchKindInteractions, domain.BatchKindProductivity))
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", "records must not be empty")
		return
	}
	if h.MaxBatchRows > 0 && len(req.Records) > h.MaxBatchRows {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			fmt.Sprintf("batch exceeds %d rows; split the export", h.MaxBatchRows))
		return
	}

	hash := ingest.BatchContentHash(kind, req.Source, req.Records)

	if existingID, ok, err := h.Store.FindBatchByHash(r.Context(), hash); err != nil {
		writeError(w, http.StatusInternalServerError, "submit_failed", err.Error())
		return
	} else if ok {
		existing, found, err := h.Store.GetBatch(r.Context(), existingID)
		if err != nil || !found {
			writeError(w, http.StatusInternalServerError, "submit_failed", "duplicate lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, submitBatchResponse{
			BatchID:   existing.BatchID,
			Status:    existing.Status,
			Duplicate: true,
		})
		return
	}

	rec := state.BatchRecord{
		BatchID:     ingest.NewBatchID(),
		Kind:        kind,
		Source:      req.Source,
		ContentHash: hash,
		Status:      domain.BatchStatusPending,
		RowCount:    len(req.Records),
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.Store.CreateBatch(r.Context(), rec, req.Records); err != nil {
		writeError(w, http.StatusInternalServerError, "submit_failed", err.Error())
		return
	}

	h.Logger.Info().Str("batch_id", rec.BatchID).
		Str("kind", string(kind)).
		Int("rows", rec.RowCount).
		Msg("batch accepted")

	writeJSON(w, http.StatusAccepted, submitBatchResponse{
		BatchID:  rec.BatchID,
		Status:   rec.Status,
		Received: rec.RowCount,
	})
}
