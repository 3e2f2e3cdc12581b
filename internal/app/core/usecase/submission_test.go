package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// Scenario C
func TestApprove_CreditsExactlyOnce(t *testing.T) {
	forEachEngine(t, func(t *testing.T, store usecase.Store) {
		ctx := context.Background()
		core := newCore(store)
		wf := usecase.NewSubmissionWorkflow(core)
		seed(t, core, "kid", 10, 0)

		sub, err := wf.Submit(ctx, "kid", "dishes", 2)
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionSubmitted, sub.Status)

		require.NoError(t, wf.Approve(ctx, sub.ID, ""))

		got, err := wf.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionApproved, got.Status)
		assert.NotNil(t, got.ReviewedAt)

		bal, _ := store.GetBalance(ctx, "kid")
		assert.Equal(t, int64(12), bal.TotalStars)
		assert.Equal(t, int64(12), bal.LifetimeStars)

		earns, _ := store.ListTransactions(ctx, "kid", domain.TransactionFilter{Type: domain.TransactionTypeEarn})
		require.Len(t, earns, 2)
		assert.Equal(t, sub.ID, earns[0].TaskSubmissionID)
		assert.Equal(t, int64(2), earns[0].Amount)
		assert.Equal(t, "Task approved: dishes", earns[0].Description)

		assert.ErrorIs(t, wf.Approve(ctx, sub.ID, ""), domain.ErrSubmissionNotPending)
		bal, _ = store.GetBalance(ctx, "kid")
		assert.Equal(t, int64(12), bal.TotalStars)
	})
}

func TestApprove_ConcurrentPaysOnce(t *testing.T) {
	forEachEngine(t, func(t *testing.T, store usecase.Store) {
		ctx := context.Background()
		wf := usecase.NewSubmissionWorkflow(newCore(store))
		sub, err := wf.Submit(ctx, "kid", "laundry", 4)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var approved atomic.Int64
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := wf.Approve(ctx, sub.ID, "")
				switch {
				case err == nil:
					approved.Add(1)
				case errors.Is(err, domain.ErrSubmissionNotPending):
				default:
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), approved.Load())
		bal, _ := store.GetBalance(ctx, "kid")
		assert.Equal(t, int64(4), bal.TotalStars)
		assertReplayConsistent(t, store, "kid")
	})
}

func TestReject_NoLedgerInteraction(t *testing.T) {
	forEachEngine(t, func(t *testing.T, store usecase.Store) {
		ctx := context.Background()
		wf := usecase.NewSubmissionWorkflow(newCore(store))
		sub, err := wf.Submit(ctx, "kid", "homework", 3)
		require.NoError(t, err)

		require.NoError(t, wf.Reject(ctx, sub.ID, "not finished"))
		got, err := wf.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionRejected, got.Status)
		assert.Equal(t, "not finished", got.RejectReason)

		assert.ErrorIs(t, wf.Approve(ctx, sub.ID, ""), domain.ErrSubmissionNotPending)
		assert.ErrorIs(t, wf.Reject(ctx, sub.ID, "again"), domain.ErrSubmissionNotPending)

		trans, _ := store.ListTransactions(ctx, "kid", domain.TransactionFilter{})
		assert.Empty(t, trans)
	})
}

func TestApprovePayout_Guards(t *testing.T) {
	forEachEngine(t, func(t *testing.T, store usecase.Store) {
		ctx := context.Background()
		core := newCore(store)
		wf := usecase.NewSubmissionWorkflow(core)
		sub, err := wf.Submit(ctx, "kid", "dishes", 2)
		require.NoError(t, err)

		assert.ErrorIs(t, core.ApprovePayout(ctx, sub.ID, "kid", 3, ""), domain.ErrInvalidInput)
		assert.ErrorIs(t, core.ApprovePayout(ctx, sub.ID, "sibling", 2, ""), domain.ErrInvalidInput)
		assert.ErrorIs(t, core.ApprovePayout(ctx, "missing", "kid", 2, ""), domain.ErrSubmissionNotFound)

		got, _ := wf.Get(ctx, sub.ID)
		assert.True(t, got.Pending())
		bal, _ := store.GetBalance(ctx, "kid")
		assert.Zero(t, bal.TotalStars)
	})
}

func TestSubmit_Validation(t *testing.T) {
	forEachEngine(t, func(t *testing.T, store usecase.Store) {
		wf := usecase.NewSubmissionWorkflow(newCore(store))
		ctx := context.Background()

		_, err := wf.Submit(ctx, "kid", "dishes", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = wf.Submit(ctx, "kid", "", 1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = wf.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestWorkflow_InvalidInputCounted(t *testing.T) {
	store, err := memory.NewMutexStore(nil)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	wf := usecase.NewSubmissionWorkflow(newCore(store, usecase.WithMetrics(usecase.NewMetrics(reg))))
	ctx := context.Background()

	assert.ErrorIs(t, wf.Approve(ctx, "", ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, wf.Reject(ctx, "", "no"), domain.ErrInvalidInput)
	_, err = wf.Submit(ctx, "kid", "dishes", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for _, op := range []string{"approve_payout", "reject_submission", "submit_task"} {
		assert.Equal(t, 1.0, counterValue(t, reg, "star_ledger_operations_total", map[string]string{"op": op, "outcome": "invalid"}), op)
	}
}
