package outbox

import (
	"context"
	"time"

	"codeberg.org/restage/server/restage/credits"
)

const (
	keyOwedDebits     = "outbox:owed_debits"
	keyDeadOwedDebits = "outbox:owed_debits:dead"

	defaultInterval    = 30 * time.Second
	defaultMaxAttempts = 5
)

// a debit that could not be recorded after its operation already succeeded
type OwedDebit struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	OperationType credits.OperationType `json:"operation_type"`
	Reason        string                `json:"reason"`
	Attempts      int                   `json:"attempts"`
	LastError     string                `json:"last_error,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// durable FIFO of owed debits
type Queue interface {
	Push(ctx context.Context, debit OwedDebit) error
	// returns nil, nil when the queue is empty
	Pop(ctx context.Context) (*OwedDebit, error)
	Len(ctx context.Context) (int64, error)
	// parks a debit that will not be retried
	Bury(ctx context.Context, debit OwedDebit) error
}

// the part of the ledger the reconciler needs
type Debiter interface {
	Debit(ctx context.Context, userID string, op credits.OperationType) (*credits.Entry, error)
}
