package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ETAnderson/deskflow/internal/dimension"
	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/state"
)

// Batch status keeps at most this many rejection details; the counters stay
// exact regardless.
const maxStoredRejections = 20

// FactEngine drives interaction-log batches: sanitize each row, resolve its
// three dimension keys, classify the shift, then attempt a single-row
// transactional insert. Rows are independent: one row's failure never aborts
// its siblings, and re-running a batch is safe because duplicate tuples are
// skipped rather than re-inserted.
type FactEngine struct {
	Store     state.Store
	Resolver  *dimension.Resolver
	Sanitizer ingest.Sanitizer

	// SyntheticDedup assigns a surrogate dedup key to rows without a protocol
	// identifier. Off by default: such rows then carry at-least-once semantics
	// on batch retry.
	SyntheticDedup bool

	// RowAttempts bounds store retries per row before the row is rejected.
	RowAttempts int

	Logger zerolog.Logger
}

func (e FactEngine) Process(ctx context.Context, batchID string, rows []ingest.RawRecord) (ingest.BatchResult, error) {
	var res ingest.BatchResult
	affected := make(map[uint64]struct{})

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			// Abandoned mid-batch: committed rows stay committed, the batch
			// stays claimable for the retry worker.
			return res, err
		}

		rec, rj := e.Sanitizer.SanitizeInteraction(raw)
		if rj != nil {
			e.rejectRow(&res, i+1, *rj)
			continue
		}

		fact, err := e.buildFact(ctx, rec)
		if err != nil {
			e.rejectRow(&res, i+1, ingest.Rejection{
				Code:    ingest.RejectResolutionFailed,
				Message: err.Error(),
			})
			continue
		}

		var inserted bool
		err = retryRow(ctx, e.RowAttempts, func() error {
			var err error
			inserted, err = e.Store.InsertInteraction(ctx, fact)
			return err
		})
		if err != nil {
			e.rejectRow(&res, i+1, ingest.Rejection{
				Code:    ingest.RejectResolutionFailed,
				Message: "insert failed: " + err.Error(),
			})
			continue
		}

		if !inserted {
			res.Duplicates++
			continue
		}

		res.Accepted++
		affected[fact.AgentID] = struct{}{}
	}

	if len(affected) > 0 {
		if err := e.recomputeShifts(ctx, affected); err != nil {
			// Derived data; the batch outcome stands.
			e.Logger.Warn().Err(err).Str("batch_id", batchID).
				Msg("predominant shift recompute failed")
		}
	}

	e.Logger.Info().Str("batch_id", batchID).
		Int("accepted", res.Accepted).
		Int("rejected", res.Rejected).
		Int("duplicates", res.Duplicates).
		Msg("interaction batch processed")

	return res, nil
}

func (e FactEngine) buildFact(ctx context.Context, rec ingest.InteractionRecord) (domain.Interaction, error) {
	var agentID, channelID, statusID uint64

	err := retryRow(ctx, e.RowAttempts, func() error {
		var err error
		agentID, err = e.Resolver.ResolveAgent(ctx, rec.AgentName, rec.Team)
		return err
	})
	if err != nil {
		return domain.Interaction{}, err
	}

	err = retryRow(ctx, e.RowAttempts, func() error {
		var err error
		channelID, err = e.Resolver.ResolveChannel(ctx, rec.Channel)
		return err
	})
	if err != nil {
		return domain.Interaction{}, err
	}

	err = retryRow(ctx, e.RowAttempts, func() error {
		var err error
		statusID, err = e.Resolver.ResolveStatus(ctx, rec.Status)
		return err
	})
	if err != nil {
		return domain.Interaction{}, err
	}

	dedupKey := rec.Protocol
	if dedupKey == "" && e.SyntheticDedup {
		dedupKey = ingest.SyntheticDedupKey(
			rec.Timestamp,
			ingest.NormalizeAgentName(rec.AgentName),
			ingest.NormalizeKey(rec.Channel),
			rec.WaitSeconds, rec.HandleSeconds,
		)
	}

	return domain.Interaction{
		OccurredAt:    rec.Timestamp,
		Shift:         domain.ClassifyShift(rec.Timestamp),
		Protocol:      rec.Protocol,
		DedupKey:      dedupKey,
		Direction:     rec.Direction,
		WaitSeconds:   rec.WaitSeconds,
		HandleSeconds: rec.HandleSeconds,
		SolutionScore: rec.SolutionScore,
		ServiceScore:  rec.ServiceScore,
		AgentID:       agentID,
		ChannelID:     channelID,
		StatusID:      statusID,
	}, nil
}

func (e FactEngine) rejectRow(res *ingest.BatchResult, row int, rj ingest.Rejection) {
	res.Rejected++
	if len(res.Rejections) < maxStoredRejections {
		rj.Row = row
		res.Rejections = append(res.Rejections, rj)
	}
}

// recomputeShifts refreshes each affected agent's predominant shift to the
// modal shift of their fact rows.
func (e FactEngine) recomputeShifts(ctx context.Context, affected map[uint64]struct{}) error {
	ids := make([]uint64, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}

	counts, err := e.Store.ShiftCounts(ctx, ids)
	if err != nil {
		return err
	}

	type best struct {
		shift domain.Shift
		count int
	}
	top := make(map[uint64]best)
	for _, c := range counts {
		if b, ok := top[c.AgentID]; !ok || c.Count > b.count {
			top[c.AgentID] = best{shift: c.Shift, count: c.Count}
		}
	}

	for agentID, b := range top {
		if err := e.Store.UpdateAgentShift(ctx, agentID, b.shift); err != nil {
			return err
		}
	}
	return nil
}
