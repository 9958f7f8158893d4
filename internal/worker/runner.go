package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ETAnderson/deskflow/internal/domain"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/state"
)

// Processor re-drives one claimed batch through an engine.
type Processor interface {
	Process(ctx context.Context, batchID string, rows []ingest.RawRecord) (ingest.BatchResult, error)
}

// Runner periodically claims batches in a non-terminal state (pending, stale
// in_progress, or failed under the attempts budget) and re-submits them to
// the engine matching their kind. Claiming increments the persisted attempt
// counter; once it reaches MaxAttempts a failing batch transitions to
// failed_permanently and is left for operator intervention.
type Runner struct {
	Store state.Store

	Interactions Processor
	Productivity Processor

	PollEvery   time.Duration
	StaleAfter  time.Duration
	MaxAttempts int
	MaxPerClaim int

	Logger zerolog.Logger
}

func (r Runner) Run(ctx context.Context) error {
	if r.Store == nil {
		return errors.New("store is nil")
	}
	if r.PollEvery <= 0 {
		r.PollEvery = 10 * time.Second
	}
	if r.StaleAfter <= 0 {
		r.StaleAfter = 5 * time.Minute
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.MaxPerClaim <= 0 {
		r.MaxPerClaim = 10
	}

	ticker := time.NewTicker(r.PollEvery)
	defer ticker.Stop()

	// one immediate pass
	if err := r.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (r Runner) tick(ctx context.Context) error {
	claims, err := r.Store.ClaimBatches(ctx, state.ClaimParams{
		Limit:       r.MaxPerClaim,
		StaleBefore: time.Now().UTC().Add(-r.StaleAfter),
		MaxAttempts: r.MaxAttempts,
	})
	if err != nil {
		return err
	}

	for _, c := range claims {
		r.process(ctx, c)
	}
	return nil
}

func (r Runner) process(ctx context.Context, c state.BatchClaim) {
	proc, err := r.processorFor(c.Kind)
	if err != nil {
		// Unknown kind can never succeed; park it immediately.
		_ = r.Store.FailBatch(ctx, c.BatchID, err.Error(), true)
		r.Logger.Error().Err(err).Str("batch_id", c.BatchID).Msg("batch unprocessable")
		return
	}

	rows, err := r.Store.ListBatchRows(ctx, c.BatchID)
	if err != nil {
		r.fail(ctx, c, err)
		return
	}

	res, err := proc.Process(ctx, c.BatchID, rows)
	if err != nil {
		r.fail(ctx, c, err)
		return
	}

	if err := r.Store.CompleteBatch(ctx, c.BatchID, res); err != nil {
		r.Logger.Error().Err(err).Str("batch_id", c.BatchID).Msg("complete batch failed")
		return
	}

	r.Logger.Info().Str("batch_id", c.BatchID).
		Str("kind", string(c.Kind)).
		Int("attempt", c.Attempts).
		Int("accepted", res.Accepted).
		Int("rejected", res.Rejected).
		Int("duplicates", res.Duplicates).
		Msg("batch completed")
}

func (r Runner) processorFor(kind domain.BatchKind) (Processor, error) {
	switch kind {
	case domain.BatchKindInteractions:
		if r.Interactions != nil {
			return r.Interactions, nil
		}
	case domain.BatchKindProductivity:
		if r.Productivity != nil {
			return r.Productivity, nil
		}
	}
	return nil, fmt.Errorf("no processor for batch kind %q", kind)
}

func (r Runner) fail(ctx context.Context, c state.BatchClaim, cause error) {
	terminal := c.Attempts >= r.MaxAttempts
	if err := r.Store.FailBatch(ctx, c.BatchID, cause.Error(), terminal); err != nil {
		r.Logger.Error().Err(err).Str("batch_id", c.BatchID).Msg("fail batch failed")
		return
	}

	evt := r.Logger.Warn()
	if terminal {
		evt = r.Logger.Error()
	}
	evt.Err(cause).Str("batch_id", c.BatchID).
		Int("attempt", c.Attempts).
		Bool("terminal", terminal).
		Msg("batch attempt failed")
}
