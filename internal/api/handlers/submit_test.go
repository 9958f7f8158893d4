package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/state"
)

func newTestRouter(store state.Store) *chi.Mux {
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/v1/batches", SubmitBatch{
		Store:        store,
		MaxBatchRows: 100,
		Logger:       zerolog.Nop(),
	})
	r.Method(http.MethodGet, "/v1/batches", ListBatches{Store: store})
	r.Method(http.MethodGet, "/v1/batches/{batchID}", GetBatch{Store: store})
	return r
}

func submitBody(t *testing.T, kind string) *bytes.Buffer {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"kind":   kind,
		"source": "export_2025-03-10.csv",
		"records": []map[string]string{
			{
				"timestamp":  "2025-03-10 09:00:00",
				"agent_name": "Ana Franco",
				"channel":    "Telefone",
				"status":     "Atendida",
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestSubmitBatch_AcceptsAndPersistsPending(t *testing.T) {
	store := state.NewMemoryStore()
	router := newTestRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", submitBody(t, "interactions")))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		BatchID  string `json:"batch_id"`
		Status   string `json:"status"`
		Received int    `json:"received"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.BatchID == "" || resp.Status != "pending" || resp.Received != 1 {
		t.Fatalf("response = %+v", resp)
	}

	stored, ok, err := store.GetBatch(context.Background(), resp.BatchID)
	if err != nil || !ok {
		t.Fatalf("batch not persisted: ok=%v err=%v", ok, err)
	}
	if stored.Status != domain.BatchStatusPending || stored.RowCount != 1 {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestSubmitBatch_DuplicatePayloadReturnsOriginal(t *testing.T) {
	router := newTestRouter(state.NewMemoryStore())

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v1/batches", submitBody(t, "interactions")))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first submit status = %d", first.Code)
	}

	var a struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/v1/batches", submitBody(t, "interactions")))
	if second.Code != http.StatusOK {
		t.Fatalf("duplicate submit status = %d", second.Code)
	}

	var b struct {
		BatchID   string `json:"batch_id"`
		Duplicate bool   `json:"duplicate"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !b.Duplicate || b.BatchID != a.BatchID {
		t.Fatalf("duplicate response = %+v, original id %s", b, a.BatchID)
	}
}

func TestSubmitBatch_RejectsBadRequests(t *testing.T) {
	router := newTestRouter(state.NewMemoryStore())

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"unknown kind", `{"kind":"telemetry","records":[{"a":"b"}]}`, http.StatusBadRequest},
		{"empty records", `{"kind":"interactions","records":[]}`, http.StatusBadRequest},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", bytes.NewBufferString(c.body)))
		if rec.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}
}

func TestSubmitBatch_TooManyRows(t *testing.T) {
	store := state.NewMemoryStore()
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/v1/batches", SubmitBatch{
		Store:        store,
		MaxBatchRows: 1,
		Logger:       zerolog.Nop(),
	})

	body, _ := json.Marshal(map[string]any{
		"kind": "interactions",
		"records": []map[string]string{
			{"agent_name": "Ana"},
			{"agent_name": "Bruno"},
		},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/batches", bytes.NewBuffer(body)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetBatch_NotFound(t *testing.T) {
	router := newTestRouter(state.NewMemoryStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/batch_missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetBatch_RoundTrip(t *testing.T) {
	store := state.NewMemoryStore()
	router := newTestRouter(store)

	submit := httptest.NewRecorder()
	router.ServeHTTP(submit, httptest.NewRequest(http.MethodPost, "/v1/batches", submitBody(t, "productivity")))

	var resp struct {
		BatchID string `json:"batch_id"`
	}
	if err := json.Unmarshal(submit.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/"+resp.BatchID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		BatchID string `json:"batch_id"`
		Kind    string `json:"kind"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.BatchID != resp.BatchID || got.Kind != "productivity" || got.Status != "pending" {
		t.Fatalf("got %+v", got)
	}
}
