package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"codeberg.org/restage/server/internal/config"
	"codeberg.org/restage/server/internal/designer"
	"codeberg.org/restage/server/internal/email"
	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/internal/replicate"
	ws "codeberg.org/restage/server/internal/websocket"
	"codeberg.org/restage/server/restage/credits"
	"codeberg.org/restage/server/restage/users"
)

// holds all dependencies and state for the API server
type Server struct {
	db          *pgxpool.Pool
	redis       *redis.Client // nil when REDIS_URL is unset
	config      *config.Config
	userRepo    *users.Repository
	ledger      *credits.Repository
	services    *Services
	hub         *ws.Hub
	reconciler  *outbox.Reconciler
	paidLimiter *limiter.Limiter
	providers   []string
	router      *gin.Engine
}

// holds the external clients and the orchestration built on them
type Services struct {
	Replicate *replicate.Client
	Designer  *designer.Service
	Owed      outbox.Queue
	Mailer    email.Sender
}
