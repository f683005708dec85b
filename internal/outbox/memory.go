package outbox

import (
	"context"
	"sync"
)

// in-process queue used when Redis is not configured
type MemoryQueue struct {
	mu    sync.Mutex
	items []OwedDebit
	dead  []OwedDebit
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, debit OwedDebit) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, debit)

	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (*OwedDebit, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, nil
	}

	debit := q.items[0]
	q.items = q.items[1:]

	return &debit, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.items)), nil
}

func (q *MemoryQueue) Bury(_ context.Context, debit OwedDebit) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dead = append(q.dead, debit)

	return nil
}

// returns a copy of the buried debits
func (q *MemoryQueue) Dead() []OwedDebit {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]OwedDebit(nil), q.dead...)
}
