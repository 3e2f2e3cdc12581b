package usecase

import (
	"context"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// Tx 是單一交易範圍內可用的讀寫操作
//
// 讀取保證在 commit 時仍是最新的 (後端以鎖或序列化交易確保)，
// 寫入要嘛全部生效，要嘛全部不生效。
type Tx interface {
	// Balance 讀取餘額，不存在時回傳 {0, 0}
	Balance(childID string) (domain.Balance, error)
	// Owns 是否已擁有物品
	Owns(childID, itemID string) (bool, error)
	// Submission 讀取任務提交
	Submission(id string) (domain.TaskSubmission, error)
	// Redemption 讀取兌換紀錄
	Redemption(id string) (domain.RewardRedemption, error)

	SaveBalance(b domain.Balance) error
	AppendTransaction(tran domain.Transaction) error
	AddOwnership(o domain.Ownership) error
	SaveSubmission(s domain.TaskSubmission) error
	SaveRedemption(r domain.RewardRedemption) error
}

// Reader 唯讀查詢，不做任何驗證或修改
type Reader interface {
	GetBalance(ctx context.Context, childID string) (domain.Balance, error)
	ListTransactions(ctx context.Context, childID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	ListOwnership(ctx context.Context, childID string) ([]domain.Ownership, error)
	GetSubmission(ctx context.Context, id string) (domain.TaskSubmission, error)
	GetRedemption(ctx context.Context, id string) (domain.RewardRedemption, error)
	ListRedemptions(ctx context.Context, childID string) ([]domain.RewardRedemption, error)
}

// Store 是帳本的儲存介面，記憶體與資料庫兩種實作都必須遵守相同的原子性保證
type Store interface {
	Reader
	// Atomically 以 childID 為隔離單位執行 fn
	// fn 回傳錯誤時不會有任何寫入；後端偵測到衝突時回傳 domain.ErrConflict
	Atomically(ctx context.Context, childID string, fn func(tx Tx) error) error
	Close() error
}

// Catalog 商店物品與獎勵的目錄
type Catalog interface {
	ShopItem(id string) (domain.ShopItem, error)
	Reward(id string) (domain.Reward, error)
}

// Notifier 在交易 commit 之後被通知
type Notifier interface {
	Publish(ctx context.Context, childID string)
}
