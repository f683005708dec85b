package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/restage/credits"
)

// periodically replays owed debits against the ledger
type Reconciler struct {
	queue       Queue
	ledger      Debiter
	interval    time.Duration
	maxAttempts int
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// result of one reconciliation pass
type Stats struct {
	Settled int
	Retried int
	Buried  int
}

func NewReconciler(queue Queue, ledger Debiter, interval time.Duration, maxAttempts int) *Reconciler {
	if interval <= 0 {
		interval = defaultInterval
	}

	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Reconciler{
		queue:       queue,
		ledger:      ledger,
		interval:    interval,
		maxAttempts: maxAttempts,
		stopCh:      make(chan struct{}),
	}
}

// begins the background reconcile loop
func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()
	logger.Info("owed debit reconciler started", "interval", r.interval.String())
}

// stops the loop after one last pass
func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	logger.Info("owed debit reconciler stopped")
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.pass()
		case <-r.stopCh:
			logger.Info("reconciling owed debits before shutdown")
			r.pass()
			return
		}
	}
}

func (r *Reconciler) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats := r.ReconcileOnce(ctx)
	if stats.Settled+stats.Retried+stats.Buried > 0 {
		logger.Info("reconciled owed debits",
			"settled", stats.Settled,
			"retried", stats.Retried,
			"buried", stats.Buried,
		)
	}
}

// processes every debit queued at the start of the call exactly once
func (r *Reconciler) ReconcileOnce(ctx context.Context) Stats {
	var stats Stats

	pending, err := r.queue.Len(ctx)
	if err != nil {
		logger.ErrorErr(err, "failed to read outbox length")
		return stats
	}

	for i := int64(0); i < pending; i++ {
		if ctx.Err() != nil {
			return stats
		}

		debit, err := r.queue.Pop(ctx)
		if err != nil {
			logger.ErrorErr(err, "failed to pop owed debit")
			continue
		}

		if debit == nil {
			return stats
		}

		switch r.settle(ctx, debit) {
		case outcomeSettled:
			stats.Settled++
		case outcomeRetry:
			stats.Retried++
		case outcomeBuried:
			stats.Buried++
		}
	}

	return stats
}

type outcome int

const (
	outcomeSettled outcome = iota
	outcomeRetry
	outcomeBuried
)

func (r *Reconciler) settle(ctx context.Context, debit *OwedDebit) outcome {
	_, err := r.ledger.Debit(ctx, debit.UserID, debit.OperationType)
	if err == nil {
		logger.Info("owed debit settled",
			"debit_id", debit.ID,
			"user_id", debit.UserID,
			"operation", debit.OperationType,
		)

		return outcomeSettled
	}

	debit.Attempts++
	debit.LastError = err.Error()

	if errors.Is(err, credits.ErrUserNotFound) || debit.Attempts >= r.maxAttempts {
		logger.ErrorErr(err, "abandoning owed debit",
			"debit_id", debit.ID,
			"user_id", debit.UserID,
			"operation", debit.OperationType,
			"attempts", debit.Attempts,
		)

		if buryErr := r.queue.Bury(ctx, *debit); buryErr != nil {
			logger.ErrorErr(buryErr, "failed to bury owed debit", "debit_id", debit.ID)
		}

		return outcomeBuried
	}

	if pushErr := r.queue.Push(ctx, *debit); pushErr != nil {
		logger.ErrorErr(pushErr, "failed to requeue owed debit", "debit_id", debit.ID)
	}

	return outcomeRetry
}
