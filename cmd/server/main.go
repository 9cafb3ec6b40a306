// Package main is the entry point for the RiftScope match analytics service.
// It wires the rate-limited upstream gateway, the two-tier response cache and
// the aggregation engine behind a REST API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/riftscope/riftscope/internal/analytics"
	analyticshandlers "github.com/riftscope/riftscope/internal/analytics/handlers"
	"github.com/riftscope/riftscope/internal/clientdata"
	"github.com/riftscope/riftscope/internal/config"
	"github.com/riftscope/riftscope/internal/database"
	"github.com/riftscope/riftscope/internal/gateway"
	"github.com/riftscope/riftscope/internal/matchstore"
	matchstorehandlers "github.com/riftscope/riftscope/internal/matchstore/handlers"
	"github.com/riftscope/riftscope/internal/profile"
	profilehandlers "github.com/riftscope/riftscope/internal/profile/handlers"
	"github.com/riftscope/riftscope/internal/ratelimit"
	"github.com/riftscope/riftscope/internal/rescache"
	"github.com/riftscope/riftscope/internal/scheduler"
	"github.com/riftscope/riftscope/internal/server"
	"github.com/riftscope/riftscope/pkg/logger"
)

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

	log.Info().Msg("Starting RiftScope")

	// matches.db holds the durable match record store; client_data.db is the
	// persistent cache tier for upstream payloads and analytics snapshots.
	matchesDB, err := database.New(database.Config{
		Name:    "matches",
		Path:    filepath.Join(cfg.DataDir, "matches.db"),
		Profile: database.ProfileStandard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open matches database")
	}
	defer matchesDB.Close()

	clientDB, err := database.New(database.Config{
		Name:    "client_data",
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer clientDB.Close()

	for _, db := range []*database.DB{matchesDB, clientDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("db", db.Name()).Msg("Failed to run migrations")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := ratelimit.New(ratelimit.Config{
		ShortWindow: cfg.Quota.ShortWindow,
		ShortLimit:  cfg.Quota.ShortLimit,
		LongWindow:  cfg.Quota.LongWindow,
		LongLimit:   cfg.Quota.LongLimit,
		BaseBackoff: cfg.Quota.BaseBackoff,
		MaxBackoff:  cfg.Quota.MaxBackoff,
	}, log)

	cache := rescache.New(rescache.Config{
		TTLs: map[rescache.Class]time.Duration{
			rescache.ClassStaticReference: cfg.Cache.StaticReferenceTTL,
			rescache.ClassRecentMatches:   cfg.Cache.RecentMatchesTTL,
			rescache.ClassSummoner:        cfg.Cache.SummonerTTL,
			rescache.ClassSnapshot:        cfg.Cache.SnapshotTTL,
		},
		NegativeTTL:   cfg.Cache.NegativeTTL,
		SweepInterval: cfg.Cache.SweepInterval,
	}, log)
	go cache.Run(ctx)

	clientRepo := clientdata.NewRepository(clientDB.Conn())

	upstream := gateway.NewClient(cfg.UpstreamKey, log)
	gw := gateway.New(cache, clientRepo, limiter, upstream, gateway.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}, map[string]time.Duration{
		gateway.FamilyAccount:     cfg.Cache.SummonerTTL,
		gateway.FamilySummoner:    cfg.Cache.SummonerTTL,
		gateway.FamilyMatchList:   cfg.Cache.RecentMatchesTTL,
		gateway.FamilyMatchDetail: cfg.Cache.StaticReferenceTTL,
		gateway.FamilyStatic:      cfg.Cache.StaticReferenceTTL,
	}, log)

	matchRepo := matchstore.NewRepository(matchesDB.Conn(), log)

	engine := analytics.NewEngine(cfg.Analytics)
	analyticsService := analytics.NewService(engine, matchRepo, cache, clientRepo, cfg.Cache.SnapshotTTL, log)

	syncService := matchstore.NewSyncService(gw, matchRepo, cfg.Region, analyticsService, log)
	profileService := profile.NewService(gw, cfg.Region, log)

	// Daily sweep of expired persistent cache entries.
	sched := scheduler.New(log)
	if err := sched.AddJob("0 0 4 * * *", clientdata.NewCleanupJob(clientRepo, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		MatchesDB:  matchesDB,
		ClientDB:   clientDB,
		Cache:      cache,
		Limiter:    limiter,
		Analytics:  analyticshandlers.NewHandler(analyticsService, log),
		MatchStore: matchstorehandlers.NewHandler(syncService, matchRepo, log),
		Profile:    profilehandlers.NewHandler(profileService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
