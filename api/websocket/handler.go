package websocket

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
	ws "codeberg.org/restage/server/internal/websocket"
)

type CheckOriginFunc func(r *http.Request) bool

// handles WebSocket connections that stream operation progress to the user.
// the token comes from the token query parameter, the Authorization header
// or the session cookie, in that order.
func WebSocketHandler(hub *ws.Hub, userLookup auth.UserLookup, checkOrigin CheckOriginFunc) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	return func(c *gin.Context) {
		var params ConnectParams
		if err := c.ShouldBindQuery(&params); err != nil {
			errors.BadRequest(c, "invalid parameters", err)
			return
		}

		token := connectionToken(c, params)
		if token == "" {
			errors.Unauthorized(c, "authorization required")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			return
		}

		// use timeout context for DB operations to prevent hanging
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user, err := userLookup.FindByID(ctx, claims.UserID)
		if err != nil {
			errors.Unauthorized(c, "user no longer exists")
			return
		}

		// check connection limits before accepting new connection
		ipAddress := c.ClientIP()
		canAccept, reason := hub.CanAcceptConnection(user.ID, ipAddress)

		if !canAccept {
			errors.TooManyRequests(c, reason)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection",
				"user_id", user.ID,
				"ip", ipAddress,
			)

			return
		}

		clientID := ws.GenerateClientID()
		client := ws.NewClient(clientID, user.ID, ipAddress, conn, hub)

		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()

		logger.Info("websocket connection established",
			"client_id", clientID,
			"user_id", user.ID,
			"ip", ipAddress,
		)
	}
}

func connectionToken(c *gin.Context, params ConnectParams) string {
	if params.Token != "" {
		return params.Token
	}

	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return auth.TokenFromSession(c.Request)
}
