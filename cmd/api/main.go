package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ETAnderson/deskflow/internal/api/auth"
	"github.com/ETAnderson/deskflow/internal/api/handlers"
	"github.com/ETAnderson/deskflow/internal/api/middleware"
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
	logger := logging.New("api", cfg.LogLevel)

	logger.Info().
		Str("env", cfg.Env).
		Str("state_backend", cfg.StateBackend).
		Bool("db_dsn_set", cfg.MySQLDSN != "").
		Msg("starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	authMW := middleware.Auth{Env: cfg.Env}
	if pub, err := auth.LoadRSAPublicKeyFromEnv("JWT_PUBLIC_KEY_PEM"); err != nil {
		if !strings.EqualFold(cfg.Env, "dev") {
			logger.Fatal().Err(err).Msg("JWT public key required outside dev")
		}
		logger.Warn().Err(err).Msg("no JWT public key, dev bypass only")
	} else {
		authMW.PublicKey = pub
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW.Handler)
		r.Method(http.MethodPost, "/batches", handlers.SubmitBatch{
			Store:        store,
			MaxBatchRows: cfg.MaxBatchRows,
			Logger:       logger,
		})
		r.Method(http.MethodGet, "/batches", handlers.ListBatches{Store: store})
		r.Method(http.MethodGet, "/batches/{batchID}", handlers.GetBatch{Store: store})
		r.Method(http.MethodGet, "/agents", handlers.ListAgents{Store: store})
	})

	// The memory backend is process-local, so a separate worker binary could
	// never see its batches; run the worker in-process instead.
	if strings.EqualFold(strings.TrimSpace(cfg.StateBackend), "memory") || cfg.StateBackend == "" {
		runner := newRunner(cfg, store, logger)
		go func() {
			if err := runner.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("embedded worker stopped")
			}
		}()
		logger.Info().Msg("embedded worker started (memory backend)")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")

		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	waitForShutdown(logger, server, cancel)
}

func newRunner(cfg config.Config, store state.Store, logger zerolog.Logger) worker.Runner {
	maxScore, err := decimal.NewFromString(cfg.MaxScore)
	if err != nil {
		maxScore = decimal.NewFromInt(10)
	}

	resolver := dimension.NewResolver(store)
	sanitizer := ingest.NewSanitizer(maxScore)

	return worker.Runner{
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
}

func waitForShutdown(logger zerolog.Logger, server *http.Server, cancel func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info().Msg("shutdown signal received")

	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	_ = server.Shutdown(ctx)
	logger.Info().Msg("shutdown complete")
}
