package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// 操作名稱，用於 metrics 與 log
const (
	opCredit   = "credit"
	opDebit    = "debit"
	opPurchase = "purchase"
	opRedeem   = "redeem_reward"
	opApprove  = "approve_payout"
	opSubmit   = "submit_task"
	opReject   = "reject_submission"
	opFulfill  = "fulfill_redemption"
)

// run 執行一個原子範圍，衝突時有限次數重試
//
// 只有 domain.ErrConflict 會重試；驗證失敗 (星星不足、已擁有…) 是這次呼叫的最終結果。
// 成功 commit 之後通知 Notifier。
func (c *CoreUseCase) run(ctx context.Context, op, childID string, fn func(tx Tx) error) error {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.retry(op)
			c.logger.Warn("ledger transaction conflict, retrying",
				slog.String("op", op), slog.String("child_id", childID), slog.Int("attempt", attempt))
			if err := wait(ctx, c.retryBackoff*time.Duration(attempt)); err != nil {
				c.metrics.observe(op, outcomeError, time.Since(start))
				return err
			}
		}
		err = c.store.Atomically(ctx, childID, fn)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	if errors.Is(err, domain.ErrConflict) {
		err = fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, c.maxRetries+1, err)
	}

	outcome := outcomeOf(err)
	c.metrics.observe(op, outcome, time.Since(start))
	switch outcome {
	case outcomeSuccess:
		if c.notifier != nil {
			c.notifier.Publish(ctx, childID)
		}
	case outcomeDeclined:
		c.logger.Debug("ledger operation declined",
			slog.String("op", op), slog.String("child_id", childID), slog.String("reason", err.Error()))
	case outcomeError:
		c.logger.Error("ledger operation failed",
			slog.String("op", op), slog.String("child_id", childID), slog.Any("error", err))
	}
	return err
}

// wait 退避等待，ctx 已結束時不再等待
func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case domain.IsDeclined(err):
		return outcomeDeclined
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSubmissionNotPending),
		errors.Is(err, domain.ErrRedemptionFulfilled):
		return outcomeRejected
	default:
		return outcomeError
	}
}
