package credits

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Ledger = (*Repository)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)

func TestMemoryLedger_DebitRecordsEntry(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 10)

	entry, err := ledger.Debit(ctx, "user-1", OperationInpaint)
	require.NoError(t, err)
	assert.Equal(t, OperationInpaint, entry.OperationType)
	assert.Equal(t, 1, entry.CreditsUsed)

	balance, err := ledger.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 9, balance)

	history, err := ledger.History(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, OperationInpaint, history[0].OperationType)
}

func TestMemoryLedger_DebitAtZero(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 0)

	_, err := ledger.Debit(ctx, "user-1", OperationGenerate)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err := ledger.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	history, err := ledger.History(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryLedger_UnknownUser(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	_, err := ledger.Balance(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = ledger.Debit(ctx, "ghost", OperationGenerate)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = ledger.Grant(ctx, "ghost", 5, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryLedger_ConcurrentDebitsNeverGoNegative(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 1)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := ledger.Debit(ctx, "user-1", OperationGenerate)
			if err == nil {
				succeeded.Add(1)
				return
			}

			if assert.ErrorIs(t, err, ErrInsufficientCredits) {
				rejected.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), rejected.Load())

	balance, err := ledger.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestMemoryLedger_ManyConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 25)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if _, err := ledger.Debit(ctx, "user-1", OperationUnstage); err == nil {
				succeeded.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(25), succeeded.Load())

	balance, err := ledger.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestMemoryLedger_Grant(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 0)

	balance, err := ledger.Grant(ctx, "user-1", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 10, balance)

	history, err := ledger.History(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, OperationGrant, history[0].OperationType)
	assert.Equal(t, -10, history[0].CreditsUsed)
	assert.Equal(t, "granted 10 credits", history[0].Description)

	_, err = ledger.Grant(ctx, "user-1", 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMemoryLedger_HistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 5)

	_, err := ledger.Debit(ctx, "user-1", OperationUnstage)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, "user-1", OperationGenerate)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, "user-1", OperationInpaint)
	require.NoError(t, err)

	history, err := ledger.History(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, OperationInpaint, history[0].OperationType)
	assert.Equal(t, OperationGenerate, history[1].OperationType)
}

func TestMemoryLedger_RejectsNonBillableDebit(t *testing.T) {
	ledger := NewMemoryLedger()
	ledger.SetBalance("user-1", 5)

	_, err := ledger.Debit(context.Background(), "user-1", OperationGrant)
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, DefaultHistoryLimit},
		{"negative uses default", -3, DefaultHistoryLimit},
		{"within range", 20, 20},
		{"capped", 1000, MaxHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLimit(tt.limit))
		})
	}
}
