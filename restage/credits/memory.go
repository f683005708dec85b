package credits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// in-process ledger with the same semantics as Repository
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	entries  map[string][]Entry
	now      func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int),
		entries:  make(map[string][]Entry),
		now:      time.Now,
	}
}

// registers a user with a starting balance, replacing any previous state
func (m *MemoryLedger) SetBalance(userID string, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[userID] = credits
}

func (m *MemoryLedger) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUserNotFound
	}

	return balance, nil
}

func (m *MemoryLedger) Debit(_ context.Context, userID string, op OperationType) (*Entry, error) {
	if !op.Billable() {
		return nil, fmt.Errorf("operation %q is not billable", op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	if balance < OperationCost {
		return nil, ErrInsufficientCredits
	}

	m.balances[userID] = balance - OperationCost
	entry := m.appendLocked(userID, op, OperationCost, describe(op))

	return &entry, nil
}

func (m *MemoryLedger) Grant(_ context.Context, userID string, amount int, description string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUserNotFound
	}

	if description == "" {
		description = fmt.Sprintf("granted %d credits", amount)
	}

	balance += amount
	m.balances[userID] = balance
	m.appendLocked(userID, OperationGrant, -amount, description)

	return balance, nil
}

func (m *MemoryLedger) History(_ context.Context, userID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.balances[userID]; !ok {
		return nil, ErrUserNotFound
	}

	stored := m.entries[userID]
	limit = normalizeLimit(limit)

	out := make([]Entry, 0, min(limit, len(stored)))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}

	return out, nil
}

func (m *MemoryLedger) appendLocked(userID string, op OperationType, used int, description string) Entry {
	entry := Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		OperationType: op,
		CreditsUsed:   used,
		Description:   description,
		CreatedAt:     m.now(),
	}

	m.entries[userID] = append(m.entries[userID], entry)

	return entry
}
