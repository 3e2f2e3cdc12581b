package projection

import (
	"context"
	"time"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// Week 每週統計的區間長度
const Week = 7 * 24 * time.Hour

// Snapshot 一位小孩在某個時間點的帳本畫面
type Snapshot struct {
	ChildID string               `json:"child_id"`
	Seq     uint64               `json:"seq"` // 快照涵蓋到的最大交易 Seq
	Balance domain.Balance       `json:"balance"`
	Recent  []domain.Transaction `json:"recent"`
	Owned   []domain.Ownership   `json:"owned"`
}

// View 唯讀投影：只轉發 Reader 的資料，不做驗證也不寫入
type View struct {
	reader      usecase.Reader
	recentLimit int
	now         func() time.Time
}

func NewView(reader usecase.Reader, recentLimit int) *View {
	if recentLimit <= 0 {
		recentLimit = 20
	}
	return &View{
		reader:      reader,
		recentLimit: recentLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 測試用
func (v *View) WithClock(now func() time.Time) *View {
	v.now = now
	return v
}

// Snapshot 讀取餘額、最近交易、擁有物品
func (v *View) Snapshot(ctx context.Context, childID string) (Snapshot, error) {
	bal, err := v.reader.GetBalance(ctx, childID)
	if err != nil {
		return Snapshot{}, err
	}
	recent, err := v.reader.ListTransactions(ctx, childID, domain.TransactionFilter{Limit: v.recentLimit})
	if err != nil {
		return Snapshot{}, err
	}
	owned, err := v.reader.ListOwnership(ctx, childID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{ChildID: childID, Seq: maxSeq(recent), Balance: bal, Recent: recent, Owned: owned}, nil
}

// LatestSeq 小孩目前最新一筆交易的 Seq，沒有交易時為 0
func (v *View) LatestSeq(ctx context.Context, childID string) (uint64, error) {
	trans, err := v.reader.ListTransactions(ctx, childID, domain.TransactionFilter{Limit: 1})
	if err != nil {
		return 0, err
	}
	return maxSeq(trans), nil
}

func maxSeq(trans []domain.Transaction) uint64 {
	var seq uint64
	for _, t := range trans {
		if t.Seq > seq {
			seq = t.Seq
		}
	}
	return seq
}

func (v *View) Balance(ctx context.Context, childID string) (domain.Balance, error) {
	return v.reader.GetBalance(ctx, childID)
}

// Transactions limit <= 0 時使用預設的最近筆數
func (v *View) Transactions(ctx context.Context, childID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = v.recentLimit
	}
	return v.reader.ListTransactions(ctx, childID, filter)
}

func (v *View) Ownership(ctx context.Context, childID string) ([]domain.Ownership, error) {
	return v.reader.ListOwnership(ctx, childID)
}

func (v *View) Redemptions(ctx context.Context, childID string) ([]domain.RewardRedemption, error) {
	return v.reader.ListRedemptions(ctx, childID)
}

// WeeklyEarned 最近七天 (含現在) earn 的總和
func (v *View) WeeklyEarned(ctx context.Context, childID string) (int64, error) {
	return v.EarnedBetween(ctx, childID, v.now().Add(-Week), time.Time{})
}

// EarnedBetween [from, to) 區間 earn 的總和，to 為零值時不設上限
func (v *View) EarnedBetween(ctx context.Context, childID string, from, to time.Time) (int64, error) {
	trans, err := v.reader.ListTransactions(ctx, childID, domain.TransactionFilter{
		Type:  domain.TransactionTypeEarn,
		Since: from,
		Until: to,
	})
	if err != nil {
		return 0, err
	}
	return domain.SumEarned(trans), nil
}
