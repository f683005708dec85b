package designs

import (
	"github.com/gin-gonic/gin"
)

// registers the paid design routes behind the given middleware (auth first, then rate limit)
func RegisterRoutes(router *gin.RouterGroup, svc Designer, middleware ...gin.HandlerFunc) {
	paid := router.Group("", middleware...)
	{
		paid.POST("/unstage", UnstageHandler(svc))
		paid.POST("/generate", GenerateHandler(svc))
		paid.POST("/inpaint", InpaintHandler(svc))
	}
}
