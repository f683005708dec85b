package websocket

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	ws "codeberg.org/restage/server/internal/websocket"
)

func RegisterRoutes(router *gin.RouterGroup, hub *ws.Hub, userLookup auth.UserLookup, checkOrigin CheckOriginFunc) {
	router.GET("/ws", WebSocketHandler(hub, userLookup, checkOrigin))
}
