package usecase

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// auditAttempts 讀取期間餘額變動時重新讀取的次數
const auditAttempts = 3

// AuditReport 交易紀錄重播結果與餘額的比對
type AuditReport struct {
	ChildID      string
	Stored       domain.Balance
	Replayed     domain.Balance
	Transactions int
}

// Consistent 重播的 total 與 lifetime 是否都等於儲存的餘額
func (r AuditReport) Consistent() bool {
	return r.Stored.TotalStars == r.Replayed.TotalStars &&
		r.Stored.LifetimeStars == r.Replayed.LifetimeStars
}

// Audit 重播小孩的全部交易紀錄並與餘額比對
//
// 讀取前後各讀一次餘額，兩者不同代表中間有寫入，重新讀取。
func (c *CoreUseCase) Audit(ctx context.Context, childID string) (AuditReport, error) {
	if err := domain.ValidateID("child_id", childID); err != nil {
		return AuditReport{}, err
	}
	for i := 0; i < auditAttempts; i++ {
		before, err := c.store.GetBalance(ctx, childID)
		if err != nil {
			return AuditReport{}, err
		}
		trans, err := c.store.ListTransactions(ctx, childID, domain.TransactionFilter{})
		if err != nil {
			return AuditReport{}, err
		}
		after, err := c.store.GetBalance(ctx, childID)
		if err != nil {
			return AuditReport{}, err
		}
		if !before.Equal(after) {
			continue
		}
		return AuditReport{
			ChildID:      childID,
			Stored:       after,
			Replayed:     domain.Replay(childID, trans),
			Transactions: len(trans),
		}, nil
	}
	return AuditReport{}, fmt.Errorf("audit %s: balance kept changing during read: %w", childID, domain.ErrConflict)
}
