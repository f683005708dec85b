package outbox

import (
	"context"
	"time"

	"codeberg.org/restage/server/restage/credits"
	"github.com/google/uuid"
)

// builds a new owed debit ready to be queued
func NewOwedDebit(userID string, op credits.OperationType, cause error) OwedDebit {
	debit := OwedDebit{
		ID:            uuid.NewString(),
		UserID:        userID,
		OperationType: op,
		CreatedAt:     time.Now().UTC(),
	}

	if cause != nil {
		debit.Reason = cause.Error()
	}

	return debit
}

// drains a queue into a slice; intended for operators and tests
func Drain(ctx context.Context, q Queue) ([]OwedDebit, error) {
	var out []OwedDebit

	for {
		debit, err := q.Pop(ctx)
		if err != nil {
			return out, err
		}

		if debit == nil {
			return out, nil
		}

		out = append(out, *debit)
	}
}
