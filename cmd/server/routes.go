package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/api/rest/admin"
	authapi "codeberg.org/restage/server/api/rest/auth"
	creditsapi "codeberg.org/restage/server/api/rest/credits"
	"codeberg.org/restage/server/api/rest/designs"
	"codeberg.org/restage/server/api/rest/health"
	"codeberg.org/restage/server/api/websocket"
	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/ratelimit"
	ws "codeberg.org/restage/server/internal/websocket"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(gin.Recovery(), RequestLogger(), CORSMiddleware(server.config))

	router.GET("/health", health.Handler)
	router.GET("/ready", health.ReadyHandler(server.db))

	authMiddleware := auth.AuthMiddleware(server.userRepo)

	api := router.Group("/api")

	{
		api.GET("/ping", health.PingHandler)

		authapi.RegisterRoutes(api, server.userRepo, server.services.Mailer, authMiddleware, authapi.Options{
			SignupCredits: server.config.SignupCredits,
			Providers:     server.providers,
		})

		designs.RegisterRoutes(api, server.services.Designer, authMiddleware, ratelimit.Middleware(server.paidLimiter))
		creditsapi.RegisterRoutes(api, server.ledger, authMiddleware)
		admin.RegisterRoutes(api, server.ledger, authMiddleware)

		websocket.RegisterRoutes(api, server.hub, server.userRepo,
			ws.CheckOrigin(server.config.AllowedOrigins, server.config.IsProduction()),
		)
	}
}
