package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/config"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/internal/ratelimit"
	ws "codeberg.org/restage/server/internal/websocket"
	"codeberg.org/restage/server/restage/credits"
	"codeberg.org/restage/server/restage/users"
)

const (
	// how often owed debits are retried
	reconcileInterval = 30 * time.Second

	// owed debits are moved to the dead list after this many failures
	reconcileMaxAttempts = 5
)

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = outbox.Connect(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	}

	paidLimiter, err := ratelimit.New(cfg.PaidRateLimit, redisClient)
	if err != nil {
		closeAll(db, redisClient)
		return nil, err
	}

	auth.InitializeSessions(cfg.SessionSecret, cfg.IsProduction())

	providers, err := auth.InitializeProviders(cfg.BaseURL, cfg.SessionSecret)
	if err != nil {
		closeAll(db, redisClient)
		return nil, fmt.Errorf("failed to initialize OAuth providers: %w", err)
	}

	userRepo := users.NewRepository(db)
	ledger := credits.NewRepository(db)
	hub := ws.NewHub()

	services := InitializeServices(cfg, ledger, redisClient, hub)
	reconciler := outbox.NewReconciler(services.Owed, ledger, reconcileInterval, reconcileMaxAttempts)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		db:          db,
		redis:       redisClient,
		config:      cfg,
		userRepo:    userRepo,
		ledger:      ledger,
		services:    services,
		hub:         hub,
		reconciler:  reconciler,
		paidLimiter: paidLimiter,
		providers:   providers,
		router:      router,
	}

	RegisterRoutes(router, server)

	logger.Info("server initialized",
		"environment", cfg.Environment,
		"oauth_providers", providers,
		"redis", redisClient != nil,
		"paid_rate_limit", cfg.PaidRateLimit,
	)

	return server, nil
}

func closeAll(db *pgxpool.Pool, redisClient *redis.Client) {
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
	}

	db.Close()
}
