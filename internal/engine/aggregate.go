package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ETAnderson/deskflow/internal/dimension"
	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/state"
)

// AggregationEngine drives productivity-extract batches. The feed exports
// daily-total snapshots, so the merge policy is overwrite-with-latest: each
// (agent, date) upsert replaces the stored counters atomically, and
// re-ingesting the same day never double-counts.
type AggregationEngine struct {
	Store     state.Store
	Resolver  *dimension.Resolver
	Sanitizer ingest.Sanitizer

	RowAttempts int

	Logger zerolog.Logger
}

func (e AggregationEngine) Process(ctx context.Context, batchID string, rows []ingest.RawRecord) (ingest.BatchResult, error) {
	var res ingest.BatchResult

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		rec, rj := e.Sanitizer.SanitizeProductivity(raw)
		if rj != nil {
			e.rejectRow(&res, i+1, *rj)
			continue
		}

		var agentID uint64
		err := retryRow(ctx, e.RowAttempts, func() error {
			var err error
			agentID, err = e.Resolver.ResolveAgent(ctx, rec.AgentName, "")
			return err
		})
		if err != nil {
			e.rejectRow(&res, i+1, ingest.Rejection{
				Code:    ingest.RejectResolutionFailed,
				Message: err.Error(),
			})
			continue
		}

		row := domain.DailyProductivity{
			ReferenceDate:       rec.Date,
			ClientsServed:       rec.ClientsServed,
			InteractionsHandled: rec.InteractionsHandled,
			RequestsClosed:      rec.RequestsClosed,
			AgentID:             agentID,
		}

		err = retryRow(ctx, e.RowAttempts, func() error {
			return e.Store.UpsertDailyProductivity(ctx, row)
		})
		if err != nil {
			e.rejectRow(&res, i+1, ingest.Rejection{
				Code:    ingest.RejectResolutionFailed,
				Message: "upsert failed: " + err.Error(),
			})
			continue
		}

		res.Accepted++
	}

	e.Logger.Info().Str("batch_id", batchID).
		Int("accepted", res.Accepted).
		Int("rejected", res.Rejected).
		Msg("productivity batch processed")

	return res, nil
}

func (e AggregationEngine) rejectRow(res *ingest.BatchResult, row int, rj ingest.Rejection) {
	res.Rejected++
	if len(res.Rejections) < maxStoredRejections {
		rj.Row = row
		res.Rejections = append(res.Rejections, rj)
	}
}
