package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	apierrors "codeberg.org/restage/server/internal/errors"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/restage/users"
)

// validates the JWT from the Authorization header or the session cookie,
// loads the user it belongs to and adds user info to context
func AuthMiddleware(lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			apierrors.Unauthorized(c, "invalid authorization header format")
			return
		}

		if token == "" {
			apierrors.Unauthorized(c, "authorization required")
			return
		}

		claims, err := ValidateJWT(token)
		if err != nil {
			apierrors.Unauthorized(c, "invalid or expired token")
			return
		}

		user, err := lookup.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, users.ErrUserNotFound) {
				logger.ErrorCtx(c.Request.Context(), err, "failed to load authenticated user", "user_id", claims.UserID)
			}

			apierrors.Unauthorized(c, "user no longer exists")
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextIsAdmin, user.IsAdmin)
		c.Set(ContextUser, user)

		// request-scoped logger gains the user id
		ctx := logger.WithContext(c.Request.Context(), logger.FromContext(c.Request.Context()).With("user_id", user.ID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// requires is_admin on the user loaded by AuthMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			apierrors.Forbidden(c, "admin access required")
			return
		}

		c.Next()
	}
}

// extracts user_id from context after AuthMiddleware
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	return userID, userID != ""
}

// returns the user loaded by AuthMiddleware
func GetUser(c *gin.Context) (*users.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}

	user, ok := value.(*users.User)

	return user, ok
}

// returns the bearer token, falling back to the session cookie.
// ok is false when an Authorization header is present but malformed.
func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return TokenFromSession(c.Request), true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
