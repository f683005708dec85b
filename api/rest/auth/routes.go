package auth

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/restage/server/internal/email"
)

// registers all authentication routes
func RegisterRoutes(router *gin.RouterGroup, store UserStore, mailer email.Sender, authMiddleware gin.HandlerFunc, opts Options) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", RegisterHandler(store, mailer, opts))
		authGroup.POST("/login", LoginHandler(store))
		authGroup.POST("/logout", LogoutHandler())
		authGroup.GET("/me", authMiddleware, GetCurrentUserHandler())
		authGroup.POST("/verify", authMiddleware, VerifyEmailHandler(store))
		authGroup.POST("/verify/resend", authMiddleware, ResendVerificationHandler(store, mailer))
		authGroup.GET("/:provider", BeginAuthHandler(opts))
		authGroup.GET("/:provider/callback", CallbackHandler(store, opts))
	}
}
