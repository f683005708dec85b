package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres unique_violation
const uniqueViolation = "23505"

// creates a new user repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// registers a new email/password user with the signup credit balance
func (r *Repository) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	row := r.db.QueryRow(
		ctx,
		queryCreate,
		req.Email,
		req.PasswordHash,
		req.Name,
		req.Credits,
		req.VerificationCode,
		req.VerificationExpiresAt,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// finds a user by OAuth provider or creates a new one
func (r *Repository) FindOrCreateByProvider(
	ctx context.Context,
	provider, providerID, email, name string,
	signupCredits int,
) (*User, error) {
	row := r.db.QueryRow(
		ctx,
		queryFindOrCreateByProvider,
		email,
		name,
		provider,
		providerID,
		signupCredits,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}

		return nil, fmt.Errorf("failed to upsert oauth user: %w", err)
	}

	return user, nil
}

// finds a user by their ID
func (r *Repository) FindByID(ctx context.Context, userID string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryFindByID, userID))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user")
	}

	return user, nil
}

// finds a user by email (case-insensitive)
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryFindByEmail, email))
	if err != nil {
		return nil, notFoundOr(err, "failed to find user by email")
	}

	return user, nil
}

// marks the email as verified when the code matches and has not expired
func (r *Repository) VerifyEmail(ctx context.Context, userID, code string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryVerifyEmail, userID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidVerificationCode
		}

		return nil, fmt.Errorf("failed to verify email: %w", err)
	}

	return user, nil
}

// replaces the pending verification code of an unverified user
func (r *Repository) SetVerificationCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, querySetVerificationCode, userID, code, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Provider,
		&user.ProviderID,
		&user.Credits,
		&user.IsAdmin,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
