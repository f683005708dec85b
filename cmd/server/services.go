package main

import (
	"github.com/redis/go-redis/v9"

	"codeberg.org/restage/server/internal/config"
	"codeberg.org/restage/server/internal/designer"
	"codeberg.org/restage/server/internal/email"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/internal/replicate"
	ws "codeberg.org/restage/server/internal/websocket"
	"codeberg.org/restage/server/restage/credits"
)

// creates and configures all service clients
func InitializeServices(cfg *config.Config, ledger credits.Ledger, redisClient *redis.Client, hub *ws.Hub) *Services {
	replicateClient := replicate.NewClient(replicate.Config{
		APIToken:     cfg.Replicate.APIToken,
		BaseURL:      cfg.Replicate.BaseURL,
		PollInterval: cfg.Replicate.PollInterval,
		MaxWait:      cfg.Replicate.MaxWait,
		MaxPolls:     cfg.Replicate.MaxPolls,
	})

	// owed debits survive restarts only with redis
	var owed outbox.Queue
	if redisClient != nil {
		owed = outbox.NewRedisQueue(redisClient)
	} else {
		logger.Warn("REDIS_URL not set, owed debits are kept in memory")
		owed = outbox.NewMemoryQueue()
	}

	designerService := designer.New(replicateClient, ledger, owed, hub, designer.Config{
		UnstageModel:  cfg.Replicate.UnstageModel,
		GenerateModel: cfg.Replicate.GenerateModel,
		InpaintModel:  cfg.Replicate.InpaintModel,
	})

	return &Services{
		Replicate: replicateClient,
		Designer:  designerService,
		Owed:      owed,
		Mailer:    email.NewSender(cfg.SMTP),
	}
}
