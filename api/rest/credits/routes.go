package credits

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/restage/credits"
)

func RegisterRoutes(router *gin.RouterGroup, ledger credits.Ledger, authMiddleware gin.HandlerFunc) {
	creditsGroup := router.Group("/credits", authMiddleware)
	{
		creditsGroup.GET("/balance", GetBalanceHandler(ledger))
		creditsGroup.GET("/history", GetHistoryHandler(ledger))
	}
}
