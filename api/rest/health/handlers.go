package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/logger"
)

// returns the server health status
func Handler(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Status:  "healthy",
		Service: "restage",
		Version: Version,
	})
}

// reports whether the database answers within two seconds
func ReadyHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", "error", err)

			c.JSON(http.StatusServiceUnavailable, Response{
				Status:  "unavailable",
				Service: "restage",
				Version: Version,
			})

			return
		}

		c.JSON(http.StatusOK, Response{
			Status:  "ready",
			Service: "restage",
			Version: Version,
		})
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
