// Package main is the entry point for the QuantScale portfolio construction
// service. It wires the universe, risk, optimization, attribution, tax, and
// narrative components together and serves them over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/quantscale/internal/config"
	"github.com/aristath/quantscale/internal/database"
	"github.com/aristath/quantscale/internal/modules/attribution"
	"github.com/aristath/quantscale/internal/modules/calculations"
	"github.com/aristath/quantscale/internal/modules/narrative"
	"github.com/aristath/quantscale/internal/modules/optimization"
	"github.com/aristath/quantscale/internal/modules/risk"
	"github.com/aristath/quantscale/internal/modules/tax"
	"github.com/aristath/quantscale/internal/modules/universe"
	"github.com/aristath/quantscale/internal/scheduler"
	"github.com/aristath/quantscale/internal/server"
	"github.com/aristath/quantscale/internal/services"
	"github.com/aristath/quantscale/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting QuantScale")

	// Initialize databases. Universe and history hold durable data; the
	// calculations database is an ephemeral cache and may be deleted freely.
	universeDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "universe.db"),
		Profile: database.ProfileStandard,
		Name:    "universe",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open universe database")
	}
	defer universeDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	calculationsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "calculations.db"),
		Profile: database.ProfileCache,
		Name:    "calculations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open calculations database")
	}
	defer calculationsDB.Close()

	// Repositories and schema
	securityRepo := universe.NewSecurityRepository(universeDB.Conn(), log)
	if err := securityRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize universe schema")
	}

	history := universe.NewHistoryDB(historyDB.Conn(), log)
	if err := history.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}

	cache := calculations.NewCache(calculationsDB.Conn())
	if err := cache.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize calculations schema")
	}

	// Universe snapshot
	snapshots := universe.NewSnapshotService(securityRepo, log)
	if _, err := snapshots.Refresh(); err != nil {
		log.Warn().Err(err).Msg("Initial universe snapshot load failed, continuing with empty universe")
	}

	// Pipeline stages
	riskBuilder := risk.NewModelBuilder(history, log)
	riskBuilder.SetCache(cache)

	optimizer := optimization.NewOptimizer(cfg.DefaultMaxWeight, cfg.SolverTimeout, log)
	attributionEngine := attribution.NewEngine(log)
	taxEngine := tax.NewEngine(cfg.DefaultProxyTicker, log)

	reporter := narrative.NewReporter(context.Background(), cfg.GeminiAPIKey, log)

	portfolioService := services.NewPortfolioService(
		snapshots,
		riskBuilder,
		optimizer,
		attributionEngine,
		reporter,
		cfg.LookbackDays,
		cfg.AttributionDays,
		cfg.BenchmarkTicker,
		log,
	)
	taxService := services.NewTaxService(snapshots, history, riskBuilder, taxEngine, log)

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotRefreshCron, scheduler.NewSnapshotRefreshJob(snapshots, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot refresh job")
	}
	if err := sched.AddJob("@daily", calculations.NewCleanupJob(cache, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Log:              log,
		Config:           cfg,
		PortfolioService: portfolioService,
		TaxService:       taxService,
		Snapshots:        snapshots,
		History:          history,
		RiskBuilder:      riskBuilder,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
