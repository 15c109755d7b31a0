package main

import (
	"context"
	"linkup/internal/app/delivery"
	"linkup/internal/app/presence"
	"linkup/internal/app/registry"
	"linkup/internal/app/server"
	"linkup/internal/app/worker"
	"linkup/internal/config"
	"linkup/internal/core/contracts"
	"linkup/internal/core/services"
	"linkup/internal/platform/logger"
	"linkup/internal/platform/metrics"
	"linkup/internal/platform/ratelimiter"
	"linkup/internal/platform/telemetry"
	"linkup/internal/plugins/postgres"
	redisPlugin "linkup/internal/plugins/redis"
	"linkup/pkg/logging"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")
	if cfg.Auth.Secret == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", logging.Err(err))
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", logging.Err(err))
		}
	}()

	// Infra
	pdb, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", logging.Err(err))
		return
	}
	defer pdb.Close()
	if err := postgres.EnsureSchema(ctx, pdb); err != nil {
		log.Error("postgres schema failed", logging.Err(err))
		return
	}
	log.Info("postgres connected")

	var presStore contracts.PresenceStore
	if cfg.Redis.URL != "" {
		rdb, err := redisPlugin.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Error("redis connection failed", logging.Err(err))
			return
		}
		defer rdb.Close()
		presStore = redisPlugin.NewRedisPresenceStore(rdb)
		log.Info("redis connected")
	} else {
		log.Info("redis disabled, last-seen mirror off")
	}

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promReg)

	// Adapters
	txManager := postgres.NewTxManager(pdb)
	userRepo := postgres.NewUserRepository(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)

	// Realtime core
	hub := registry.NewRegistry()
	hub.OnResize(func(s registry.Stats) { m.SetRegistrySize(s.Connections, s.Users) })
	broadcaster := presence.NewBroadcaster(log, hub, presStore, m, cfg.Realtime.PushTimeout)
	router := delivery.NewRouter(log, hub, broadcaster, m, delivery.Options{
		PushTimeout:  cfg.Realtime.PushTimeout,
		EchoToSender: cfg.Realtime.EchoToSender,
	})

	// Core Services
	tokenSvc := services.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	userSvc := services.NewUserService(log, userRepo, txManager)
	msgSvc := services.NewMessageService(log, msgRepo, userRepo, router, txManager)
	managerSvc := services.NewConnectionManager(log, hub, broadcaster)

	if presStore != nil {
		wrkr := worker.NewPresenceSyncWorker(log, hub, presStore, cfg.Worker.PresenceSyncInterval)
		go func() {
			if err := wrkr.Run(ctx); err != nil {
				log.Error("presence sync worker stopped", logging.Err(err))
			}
		}()
	}

	// Server
	srv := server.NewServer(log, cfg, server.Deps{
		Users:    userSvc,
		Tokens:   tokenSvc,
		Messages: msgSvc,
		Manager:  managerSvc,
		Registry: hub,
		Presence: presStore,
		Metrics:  m,
		Limiter:  ratelimiter.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL),
	})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", logging.Err(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logging.Err(err))
	}
	log.Info("application stopped")
}
