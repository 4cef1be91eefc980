package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gatehouse-systems/gatehouse/internal/config"
	"github.com/gatehouse-systems/gatehouse/internal/db"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/cloud"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/directory"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/gatehouse-systems/gatehouse/internal/httpapi"
	"github.com/gatehouse-systems/gatehouse/internal/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Storage ──────────────────────────────────────────────────────

	database, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, database, db.SeedDevOptions{KnownNodes: cfg.KnownNodes}); err != nil {
			return fmt.Errorf("seed dev data: %w", err)
		}
	}

	writer := db.NewWorker(database)
	defer writer.Close()

	customers := sqlite.NewCustomerStore(database, writer)
	sessions := sqlite.NewSessionStore(database, writer)
	events := sqlite.NewAccessEventStore(database, writer)
	nodes := sqlite.NewNodeStore(database, writer)
	heartbeats := sqlite.NewHeartbeatStore(database, writer)

	// ── Cloud channel ────────────────────────────────────────────────

	var channel cloud.Channel
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			// The fallback authority covers an unreachable broker; startup
			// continues in degraded mode rather than failing.
			logger.Warn("redis unreachable at startup, running degraded",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		channel = cloud.NewRedisChannel(client, logger)
		logger.Info("cloud channel: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		channel = cloud.NewMemoryChannel()
		logger.Info("cloud channel: in-process (no GATEHOUSE_REDIS_ADDR)")
	}

	correlator := cloud.NewCorrelator(channel, cfg.RequestTopic, logger)
	correlator.Start(ctx)
	defer correlator.Stop()

	// ── Services ─────────────────────────────────────────────────────

	dir := directory.NewClient(customers, sessions, logger)
	registry := service.NewNodeRegistry(nodes)
	sessionSvc := service.NewSessionService(dir, customers, logger)

	accessSvc := service.NewAccessService(service.AccessDeps{
		Registry:     registry,
		Directory:    dir,
		Decisions:    service.NewDecisionEngine(cfg.FreshnessWindow),
		Sessions:     sessionSvc,
		Authorizer:   correlator,
		Fallback:     service.NewFallbackAuthority(cfg.FallbackResource, logger),
		EventStore:   events,
		CloudTimeout: cfg.CloudTimeout,
		Logger:       logger,
	})

	heartbeatSvc := service.NewHeartbeatService(heartbeats, registry)

	pruner := service.NewHeartbeatPruner(heartbeats, service.PrunerConfig{
		RetentionDays: cfg.HeartbeatRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	// ── Inbound cloud messages ───────────────────────────────────────

	responses := cloud.NewListener(channel, cfg.ResponseTopic, cloud.Handlers{
		AuthorizationResponse: func(_ context.Context, resp cloud.AuthorizationResponse) {
			correlator.HandleResponse(resp)
		},
	}, logger)
	go func() {
		if err := responses.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("response listener stopped", zap.Error(err))
		}
	}()

	checkouts := cloud.NewListener(channel, cfg.CheckoutTopic, cloud.Handlers{
		CheckoutCompleted: func(ctx context.Context, ev cloud.CheckoutCompleted) {
			err := sessionSvc.ApplyCheckoutCompletion(ctx, ev.SessionKey, ev.TotalCents, ev.Items, ev.Timestamp)
			if err != nil {
				logger.Error("checkout completion failed",
					zap.String("session_key", ev.SessionKey), zap.Error(err))
			}
		},
	}, logger)
	go func() {
		if err := checkouts.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("checkout listener stopped", zap.Error(err))
		}
	}()

	// ── HTTP ─────────────────────────────────────────────────────────

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		HeartbeatService: heartbeatSvc,
		AccessService:    accessSvc,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && ctx.Err() == nil {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	return nil
}
