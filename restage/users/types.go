package users

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
)

// login providers
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// handles user database operations
type Repository struct {
	db *pgxpool.Pool
}

// represents a registered user; credits are only changed through the credits ledger
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Provider      string    `json:"provider"`
	ProviderID    string    `json:"-"`
	Credits       int       `json:"credits"`
	IsAdmin       bool      `json:"isAdmin"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// contains the data needed to register a local (email/password) user
type CreateUserRequest struct {
	Email                 string
	PasswordHash          string
	Name                  string
	Credits               int
	VerificationCode      string
	VerificationExpiresAt time.Time
}
