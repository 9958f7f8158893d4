package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/ETAnderson/deskflow/internal/config"
	"github.com/ETAnderson/deskflow/internal/dimension"
	"github.com/ETAnderson/deskflow/internal/engine"
	"github.com/ETAnderson/deskflow/internal/ingest"
	"github.com/ETAnderson/deskflow/internal/logging"
	"github.com/ETAnderson/deskflow/internal/migrate"
	"github.com/ETAnderson/deskflow/internal/state"
	"github.com/ETAnderson/deskflow/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := logging.New("worker", cfg.LogLevel)

	logger.Info().
		Str("env", cfg.Env).
		Str("state_backend", cfg.StateBackend).
		Str("dedup_policy", cfg.DedupPolicy).
		Dur("poll_every", cfg.WorkerPollEvery).
		Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	factoryRes, err := state.NewStore(ctx, state.FactoryConfig{
		Backend:  cfg.StateBackend,
		MySQLDSN: cfg.MySQLDSN,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("state store init failed")
	}
	store := factoryRes.Store

	if cfg.RunMigrations && factoryRes.DB != nil {
		if err := migrate.ApplyDir(ctx, factoryRes.DB, cfg.MigrationsDir, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	maxScore, err := decimal.NewFromString(cfg.MaxScore)
	if err != nil {
		logger.Warn().Str("max_score", cfg.MaxScore).Msg("invalid MAX_SCORE, using 10")
		maxScore = decimal.NewFromInt(10)
	}

	resolver := dimension.NewResolver(store)
	sanitizer := ingest.NewSanitizer(maxScore)

	runner := worker.Runner{
		Store: store,
		Interactions: engine.FactEngine{
			Store:          store,
			Resolver:       resolver,
			Sanitizer:      sanitizer,
			SyntheticDedup: cfg.DedupPolicy == config.DedupSynthetic,
			RowAttempts:    cfg.RowAttempts,
			Logger:         logger,
		},
		Productivity: engine.AggregationEngine{
			Store:       store,
			Resolver:    resolver,
			Sanitizer:   sanitizer,
			RowAttempts: cfg.RowAttempts,
			Logger:      logger,
		},
		PollEvery:   cfg.WorkerPollEvery,
		StaleAfter:  cfg.WorkerStaleAfter,
		MaxAttempts: cfg.WorkerMaxAttempts,
		MaxPerClaim: cfg.WorkerMaxPerClaim,
		Logger:      logger,
	}

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal().Err(err).Msg("worker stopped")
	}

	logger.Info().Msg("worker stopped")
}
