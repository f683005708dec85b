package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// creates a new postgres ledger
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// returns the current credit balance of a user
func (r *Repository) Balance(ctx context.Context, userID string) (int, error) {
	var balance int

	err := r.db.QueryRow(ctx, queryBalance, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}

		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// takes exactly one credit and appends the matching history entry atomically
func (r *Repository) Debit(ctx context.Context, userID string, op OperationType) (*Entry, error) {
	if !op.Billable() {
		return nil, fmt.Errorf("operation %q is not billable", op)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var balance int

	err = tx.QueryRow(ctx, queryDecrement, userID).Scan(&balance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to decrement credits: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, queryUserExists, userID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}

		if !exists {
			return nil, ErrUserNotFound
		}

		return nil, ErrInsufficientCredits
	}

	entry, err := scanEntry(tx.QueryRow(ctx, queryInsertEntry, userID, op, OperationCost, describe(op)))
	if err != nil {
		return nil, fmt.Errorf("failed to record credit usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit debit: %w", err)
	}

	return entry, nil
}

// adds credits to a user and records a negative-usage grant entry
func (r *Repository) Grant(ctx context.Context, userID string, amount int, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var balance int

	err = tx.QueryRow(ctx, queryIncrement, userID, amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}

		return 0, fmt.Errorf("failed to add credits: %w", err)
	}

	if description == "" {
		description = fmt.Sprintf("granted %d credits", amount)
	}

	if _, err := tx.Exec(ctx, queryInsertEntry, userID, OperationGrant, -amount, description); err != nil {
		return 0, fmt.Errorf("failed to record credit grant: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit grant: %w", err)
	}

	return balance, nil
}

// lists a user's ledger entries, most recent first
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, queryHistory, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query credit history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit history: %w", err)
		}

		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating credit history: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var entry Entry

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.OperationType,
		&entry.CreditsUsed,
		&entry.Description,
		&entry.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return &entry, nil
}
