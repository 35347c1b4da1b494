// Package main is the entry point for the advisor service. It wires the
// provider fallback chain, the scoring engine and the HTTP API, and runs
// the background cache warm-up and cleanup jobs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantfolio/advisor/internal/advisor"
	"github.com/quantfolio/advisor/internal/config"
	"github.com/quantfolio/advisor/internal/database"
	"github.com/quantfolio/advisor/internal/mlsvc"
	"github.com/quantfolio/advisor/internal/profiles"
	"github.com/quantfolio/advisor/internal/providers"
	"github.com/quantfolio/advisor/internal/providers/alphavantage"
	"github.com/quantfolio/advisor/internal/providers/finnhub"
	"github.com/quantfolio/advisor/internal/ratelimit"
	"github.com/quantfolio/advisor/internal/retry"
	"github.com/quantfolio/advisor/internal/scheduler"
	"github.com/quantfolio/advisor/internal/server"
	"github.com/quantfolio/advisor/internal/snapshots"
	"github.com/quantfolio/advisor/pkg/logger"
)

const maxRetryAttempts = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting advisor")

	// Databases: ephemeral snapshot cache and the durable profile and
	// history store.
	snapshotsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("snapshots"),
		Profile: database.ProfileCache,
		Name:    "snapshots",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshots database")
	}
	defer snapshotsDB.Close()

	advisorDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("advisor"),
		Profile: database.ProfileStandard,
		Name:    "advisor",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open advisor database")
	}
	defer advisorDB.Close()

	if err := snapshotsDB.Migrate(snapshots.Schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate snapshots database")
	}
	for _, schema := range []string{snapshots.HistorySchema, profiles.Schema} {
		if err := advisorDB.Migrate(schema); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate advisor database")
		}
	}

	// Provider chain: Finnhub primary, Alpha Vantage secondary when
	// configured. Quotas are enforced per provider by a shared sliding
	// window limiter.
	limiter := ratelimit.New(log)
	limiter.Register(finnhub.ProviderName, finnhub.QuotaPerMinute)

	primary, err := finnhub.NewClient(cfg.FinnhubAPIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create primary provider")
	}

	var secondary providers.Provider
	if cfg.HasSecondaryProvider() {
		limiter.Register(alphavantage.ProviderName, alphavantage.QuotaPerMinute)
		av, err := alphavantage.NewClient(cfg.AlphaVantageAPIKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create secondary provider")
		}
		secondary = av
		log.Info().Msg("Secondary provider configured")
	} else {
		log.Warn().Msg("No secondary provider configured, running without fallback")
	}

	chain := providers.NewChain(primary, secondary, limiter, retry.New(maxRetryAttempts, log), log)

	var predictor advisor.Predictor
	if cfg.HasMLService() {
		ml, err := mlsvc.NewClient(cfg.MLServiceURL, cfg.MLServiceAPIKey, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create ML client")
		}
		predictor = ml
		log.Info().Msg("ML inference service configured")
	} else {
		log.Info().Msg("ML inference service not configured, using technical scoring only")
	}

	snapshotRepo := snapshots.NewRepository(snapshotsDB.Conn())
	historyRepo := snapshots.NewHistoryRepository(advisorDB.Conn())
	profileRepo := profiles.NewRepository(advisorDB.Conn())

	engine := advisor.NewEngine(chain, predictor, snapshotRepo, historyRepo, log)

	// Background jobs: keep the cache warm so requests do not wait on
	// provider quotas, and trim expired rows.
	sched := scheduler.New(log)
	warmup := advisor.NewWarmupJob(engine, log)
	if err := sched.AddJob("@every 4m", warmup); err != nil {
		log.Fatal().Err(err).Msg("Failed to register warm-up job")
	}
	if err := sched.AddJob("@daily", snapshots.NewCleanupJob(snapshotRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	if err := sched.AddJob("@daily", snapshots.NewHistoryPruneJob(historyRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register history prune job")
	}
	sched.Start()

	// Warm the cache once at startup without blocking the server.
	go func() {
		if err := sched.RunNow(warmup); err != nil {
			log.Warn().Err(err).Msg("Initial cache warm-up did not complete")
		}
	}()

	srv := server.New(server.Config{
		Log:         log,
		Engine:      engine,
		Profiles:    profileRepo,
		History:     historyRepo,
		SnapshotsDB: snapshotsDB,
		ProfilesDB:  advisorDB,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
