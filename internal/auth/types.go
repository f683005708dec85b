package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"codeberg.org/restage/server/restage/users"
)

// represents JWT claims
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// resolves the user a valid token belongs to
type UserLookup interface {
	FindByID(ctx context.Context, userID string) (*users.User, error)
}

// gin context keys set by AuthMiddleware
const (
	ContextUserID  = "user_id"
	ContextEmail   = "user_email"
	ContextIsAdmin = "is_admin"
	ContextUser    = "user"
)
