package credits

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
)

// cost of every paid operation
const OperationCost = 1

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// the kind of operation a ledger entry records
type OperationType string

const (
	OperationGenerate OperationType = "generate"
	OperationInpaint  OperationType = "inpaint"
	OperationUnstage  OperationType = "unstage"
	OperationGrant    OperationType = "grant"
)

// checks whether op is a billable operation
func (op OperationType) Billable() bool {
	switch op {
	case OperationGenerate, OperationInpaint, OperationUnstage:
		return true
	}

	return false
}

// a single append-only credit history row.
// CreditsUsed is positive for debits and negative for grants.
type Entry struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	OperationType OperationType `json:"operationType"`
	CreditsUsed   int           `json:"creditsUsed"`
	Description   string        `json:"description"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Ledger is the credit store used by the designer and the HTTP handlers
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string, op OperationType) (*Entry, error)
	Grant(ctx context.Context, userID string, amount int, description string) (int, error)
	History(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// postgres-backed ledger
type Repository struct {
	db *pgxpool.Pool
}
