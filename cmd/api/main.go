package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/EX7EX/SimplRefQ/internal/audit"
	"github.com/EX7EX/SimplRefQ/internal/auth"
	"github.com/EX7EX/SimplRefQ/internal/claim"
	"github.com/EX7EX/SimplRefQ/internal/config"
	"github.com/EX7EX/SimplRefQ/internal/handlers"
	"github.com/EX7EX/SimplRefQ/internal/ledger"
	"github.com/EX7EX/SimplRefQ/internal/middleware"
	"github.com/EX7EX/SimplRefQ/internal/models"
	"github.com/EX7EX/SimplRefQ/internal/ranking"
	"github.com/EX7EX/SimplRefQ/internal/referral"
	"github.com/EX7EX/SimplRefQ/internal/router"
	"github.com/EX7EX/SimplRefQ/internal/schedule"
	"github.com/EX7EX/SimplRefQ/internal/store"
	"github.com/EX7EX/SimplRefQ/internal/tasks"
	"github.com/EX7EX/SimplRefQ/internal/users"
	"github.com/EX7EX/SimplRefQ/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL")

	if err := store.ApplySchema(ctx, pool); err != nil {
		slog.Error("Applying schema failed", "error", err)
		os.Exit(1)
	}

	// River migrations (job tables).
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	// Audit log first; everything else records into it.
	auditSvc := audit.NewService(audit.NewRepository(pool), logger)

	ledgerSvc := ledger.NewService(ledger.NewRepository(pool), auditSvc)
	claimSvc := claim.NewService(claim.NewRepository(pool), auditSvc, logger, cfg.DailyReward)
	referralSvc := referral.NewService(referral.NewRepository(pool), auditSvc, cfg.ReferralBonus, cfg.ReferralCap)
	tasksSvc := tasks.NewService(tasks.NewRepository(pool), auditSvc)

	// Chain RPC access is optional; without endpoints every balance read
	// reports the chain as unavailable.
	var chainClient wallet.ChainClient
	if cfg.EthRPCURL != "" || cfg.PolygonRPCURL != "" {
		rpc, err := wallet.NewRPCClient(map[string]string{
			models.ChainEthereum: cfg.EthRPCURL,
			models.ChainPolygon:  cfg.PolygonRPCURL,
		})
		if err != nil {
			slog.Error("Failed to create chain RPC client", "error", err)
			os.Exit(1)
		}
		chainClient = rpc
	}
	walletMgr := wallet.NewManager(wallet.NewRepository(pool), chainClient)
	usersSvc := users.NewService(users.NewRepository(pool), tasksSvc, referralSvc, auditSvc, logger)

	// Leaderboard cache is optional; without Redis every read hits Postgres.
	var cache ranking.LeaderboardCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, serving leaderboard from Postgres", "error", err)
		} else {
			cache = ranking.NewCache(rdb)
		}
	}
	rankingSvc := ranking.NewService(ranking.NewRepository(pool), cache, auditSvc, logger)

	// Background ranking recompute.
	workers := river.NewWorkers()
	river.AddWorker(workers, schedule.NewRankingRecomputeWorker(rankingSvc, logger))
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers:      workers,
		PeriodicJobs: schedule.PeriodicJobs(cfg.RankingInterval),
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	userHandler := &handlers.UserHandler{
		Users:     usersSvc,
		Claims:    claimSvc,
		Referrals: referralSvc,
		Rankings:  rankingSvc,
		Tasks:     tasksSvc,
		Wallets:   walletMgr,
		Logger:    logger,
	}
	adminHandler := &handlers.AdminHandler{
		Users:    usersSvc,
		Rankings: rankingSvc,
		Tasks:    tasksSvc,
		Ledger:   ledgerSvc,
		Audit:    auditSvc,
		Logger:   logger,
	}

	serviceAuth := middleware.APIKeyAuth(auth.NewAPIKeyRepository(pool))
	operatorAuth := middleware.OperatorAuth(authSvc)

	mux := router.New(userHandler, adminHandler, authHandler, serviceAuth, operatorAuth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
