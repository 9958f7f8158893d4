package state

import (
	"context"
	"time"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
)

type AgentRecord struct {
	ID               uint64       `json:"id"`
	Name             string       `json:"name"`
	Team             string       `json:"team,omitempty"`
	PredominantShift domain.Shift `json:"predominant_shift,omitempty"`
}

type AgentShiftCount struct {
	AgentID uint64
	Shift   domain.Shift
	Count   int
}

type BatchRecord struct {
	BatchID     string             `json:"batch_id"`
	Kind        domain.BatchKind   `json:"kind"`
	Source      string             `json:"source,omitempty"`
	ContentHash string             `json:"-"`
	Status      domain.BatchStatus `json:"status"`
	Attempts    int                `json:"attempts"`
	RowCount    int                `json:"row_count"`

	Result ingest.BatchResult `json:"result"`
	Error  string             `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BatchClaim is one batch handed to the worker. Attempts reflects the value
// after the claim's own increment.
type BatchClaim struct {
	BatchID  string
	Kind     domain.BatchKind
	Attempts int
}

type ClaimParams struct {
	Limit int

	// StaleBefore reclaims in_progress batches whose processing started
	// before this instant (abandoned by a crashed or timed-out run).
	StaleBefore time.Time

	// MaxAttempts bounds how often a failed batch is retried.
	MaxAttempts int
}

type Store interface {
	// Dimensions. CreateDimension is atomic create-or-get: on a natural-key
	// conflict it returns the surviving row's id, so concurrent first-time
	// resolution never surfaces the race.
	FindDimension(ctx context.Context, kind domain.DimensionKind, key string) (uint64, bool, error)
	CreateDimension(ctx context.Context, kind domain.DimensionKind, key, displayName, team string) (uint64, error)
	FindAgentAlias(ctx context.Context, key string) (uint64, bool, error)
	ListAgents(ctx context.Context) ([]AgentRecord, error)
	ShiftCounts(ctx context.Context, agentIDs []uint64) ([]AgentShiftCount, error)
	UpdateAgentShift(ctx context.Context, agentID uint64, shift domain.Shift) error

	// Facts. InsertInteraction reports false when the row's dedup tuple
	// already exists. UpsertDailyProductivity overwrites the stored counters
	// for (agent, date) atomically.
	InsertInteraction(ctx context.Context, f domain.Interaction) (bool, error)
	UpsertDailyProductivity(ctx context.Context, p domain.DailyProductivity) error

	// Batch lifecycle.
	CreateBatch(ctx context.Context, rec BatchRecord, rows []ingest.RawRecord) error
	GetBatch(ctx context.Context, batchID string) (BatchRecord, bool, error)
	FindBatchByHash(ctx context.Context, hash string) (string, bool, error)
	ListBatches(ctx context.Context, limit int) ([]BatchRecord, error)
	ListBatchRows(ctx context.Context, batchID string) ([]ingest.RawRecord, error)
	ClaimBatches(ctx context.Context, p ClaimParams) ([]BatchClaim, error)
	CompleteBatch(ctx context.Context, batchID string, res ingest.BatchResult) error
	FailBatch(ctx context.Context, batchID string, message string, terminal bool) error
}
