package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
)

// MemoryStore backs dev runs and tests. It honors the same uniqueness
// guarantees the MySQL backend gets from its constraints.
type MemoryStore struct {
	mu sync.Mutex

	nextID uint64

	dims    map[domain.DimensionKind]map[string]uint64 // kind -> natural key -> id
	agents  map[uint64]*AgentRecord
	aliases map[string]uint64 // alias key -> agent id

	interactions []domain.Interaction
	dedupSeen    map[string]struct{} // dedupKey|agentID|occurredAt

	productivity map[string]domain.DailyProductivity // agentID|date

	batches   map[string]*BatchRecord
	batchRows map[string][]ingest.RawRecord
	byHash    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dims: map[domain.DimensionKind]map[string]uint64{
			domain.DimensionAgent:   {},
			domain.DimensionChannel: {},
			domain.DimensionStatus:  {},
		},
		agents:       make(map[uint64]*AgentRecord),
		aliases:      make(map[string]uint64),
		dedupSeen:    make(map[string]struct{}),
		productivity: make(map[string]domain.DailyProductivity),
		batches:      make(map[string]*BatchRecord),
		batchRows:    make(map[string][]ingest.RawRecord),
		byHash:       make(map[string]string),
	}
}

func (s *MemoryStore) FindDimension(ctx context.Context, kind domain.DimensionKind, key string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.dims[kind]
	if !ok {
		return 0, false, fmt.Errorf("unknown dimension kind %q", kind)
	}
	id, ok := m[key]
	return id, ok, nil
}

func (s *MemoryStore) CreateDimension(ctx context.Context, kind domain.DimensionKind, key, displayName, team string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.dims[kind]
	if !ok {
		return 0, fmt.Errorf("unknown dimension kind %q", kind)
	}

	// Create-or-get, like INSERT ... ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id).
	if id, ok := m[key]; ok {
		return id, nil
	}

	s.nextID++
	id := s.nextID
	m[key] = id

	if kind == domain.DimensionAgent {
		s.agents[id] = &AgentRecord{ID: id, Name: displayName, Team: team}
	}
	return id, nil
}

func (s *MemoryStore) FindAgentAlias(ctx context.Context, key string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.aliases[key]
	return id, ok, nil
}

// PutAgentAlias registers an alias for tests and seeding; the MySQL backend
// treats the alias table as admin-maintained data.
func (s *MemoryStore) PutAgentAlias(key string, agentID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.aliases[key] = agentID
}

func (s *MemoryStore) ListAgents(ctx context.Context) ([]AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AgentRecord, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PredominantShift != out[j].PredominantShift {
			return out[i].PredominantShift < out[j].PredominantShift
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) ShiftCounts(ctx context.Context, agentIDs []uint64) ([]AgentShiftCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[uint64]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		want[id] = struct{}{}
	}

	counts := make(map[uint64]map[domain.Shift]int)
	for _, f := range s.interactions {
		if _, ok := want[f.AgentID]; !ok {
			continue
		}
		if counts[f.AgentID] == nil {
			counts[f.AgentID] = make(map[domain.Shift]int)
		}
		counts[f.AgentID][f.Shift]++
	}

	var out []AgentShiftCount
	for agentID, byShift := range counts {
		for shift, n := range byShift {
			out = append(out, AgentShiftCount{AgentID: agentID, Shift: shift, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}
		return out[i].Shift < out[j].Shift
	})
	return out, nil
}

func (s *MemoryStore) UpdateAgentShift(ctx context.Context, agentID uint64, shift domain.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %d not found", agentID)
	}
	a.PredominantShift = shift
	return nil
}

func (s *MemoryStore) InsertInteraction(ctx context.Context, f domain.Interaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.DedupKey != "" {
		k := fmt.Sprintf("%s|%d|%d", f.DedupKey, f.AgentID, f.OccurredAt.Unix())
		if _, dup := s.dedupSeen[k]; dup {
			return false, nil
		}
		s.dedupSeen[k] = struct{}{}
	}

	s.interactions = append(s.interactions, f)
	return true, nil
}

func (s *MemoryStore) UpsertDailyProductivity(ctx context.Context, p domain.DailyProductivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := fmt.Sprintf("%d|%s", p.AgentID, p.ReferenceDate.Format("2006-01-02"))
	s.productivity[k] = p
	return nil
}

func (s *MemoryStore) CreateBatch(ctx context.Context, rec BatchRecord, rows []ingest.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[rec.BatchID]; exists {
		return fmt.Errorf("batch %s already exists", rec.BatchID)
	}

	cp := rec
	s.batches[rec.BatchID] = &cp

	rcp := make([]ingest.RawRecord, len(rows))
	copy(rcp, rows)
	s.batchRows[rec.BatchID] = rcp

	if rec.ContentHash != "" {
		s.byHash[rec.ContentHash] = rec.BatchID
	}
	return nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, batchID string) (BatchRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return BatchRecord{}, false, nil
	}
	return *b, true, nil
}

func (s *MemoryStore) FindBatchByHash(ctx context.Context, hash string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[hash]
	return id, ok, nil
}

func (s *MemoryStore) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]BatchRecord, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListBatchRows(ctx context.Context, batchID string) ([]ingest.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.batchRows[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}
	out := make([]ingest.RawRecord, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) ClaimBatches(ctx context.Context, p ClaimParams) ([]BatchClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*BatchRecord, 0, len(s.batches))
	for _, b := range s.batches {
		switch b.Status {
		case domain.BatchStatusPending:
			candidates = append(candidates, b)
		case domain.BatchStatusInProgress:
			if b.StartedAt != nil && b.StartedAt.Before(p.StaleBefore) {
				candidates = append(candidates, b)
			}
		case domain.BatchStatusFailed:
			if b.Attempts < p.MaxAttempts {
				candidates = append(candidates, b)
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if p.Limit > 0 && p.Limit < len(candidates) {
		candidates = candidates[:p.Limit]
	}

	now := time.Now().UTC()
	claims := make([]BatchClaim, 0, len(candidates))
	for _, b := range candidates {
		b.Status = domain.BatchStatusInProgress
		b.Attempts++
		started := now
		b.StartedAt = &started

		claims = append(claims, BatchClaim{
			BatchID:  b.BatchID,
			Kind:     b.Kind,
			Attempts: b.Attempts,
		})
	}
	return claims, nil
}

func (s *MemoryStore) CompleteBatch(ctx context.Context, batchID string, res ingest.BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("batch %s not found", batchID)
	}
	b.Status = domain.BatchStatusCompleted
	b.Result = res
	b.Error = ""
	done := time.Now().UTC()
	b.CompletedAt = &done
	return nil
}

func (s *MemoryStore) FailBatch(ctx context.Context, batchID string, message string, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("batch %s not found", batchID)
	}
	if terminal {
		b.Status = domain.BatchStatusFailedPermanently
	} else {
		b.Status = domain.BatchStatusFailed
	}
	b.Error = message
	return nil
}

// Test helpers below: the engines' tests assert on stored facts directly.

func (s *MemoryStore) Interactions() []domain.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Interaction, len(s.interactions))
	copy(out, s.interactions)
	return out
}

func (s *MemoryStore) GetDailyProductivity(agentID uint64, date time.Time) (domain.DailyProductivity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.productivity[fmt.Sprintf("%d|%s", agentID, date.Format("2006-01-02"))]
	return p, ok
}

func (s *MemoryStore) GetAgent(id uint64) (AgentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.agents[id]
	if !ok {
		return AgentRecord{}, false
	}
	return *a, true
}
