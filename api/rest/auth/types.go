package auth

import (
	"context"
	"time"

	"codeberg.org/restage/server/restage/users"
)

// lifetime of an email verification code
const verificationTTL = 24 * time.Hour

// user persistence needed by the auth handlers
type UserStore interface {
	Create(ctx context.Context, req users.CreateUserRequest) (*users.User, error)
	FindByID(ctx context.Context, userID string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindOrCreateByProvider(ctx context.Context, provider, providerID, email, name string, signupCredits int) (*users.User, error)
	VerifyEmail(ctx context.Context, userID, code string) (*users.User, error)
	SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error
}

// settings shared by the auth handlers
type Options struct {
	SignupCredits int
	Providers     []string
}

// AuthResponse returned after register, login or OAuth callback
type AuthResponse struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

// UserResponse wraps user data
type UserResponse struct {
	User *users.User `json:"user"`
}

// MessageResponse for simple success messages
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest for email/password signup
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest for email/password login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyEmailRequest carries the emailed verification code
type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}
