package admin

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/auth"
	"codeberg.org/restage/server/restage/credits"
)

func RegisterRoutes(router *gin.RouterGroup, ledger credits.Ledger, authMiddleware gin.HandlerFunc) {
	admin := router.Group("/admin", authMiddleware, auth.AdminMiddleware())

	admin.POST("/add-credits", AddCreditsHandler(ledger))
}
