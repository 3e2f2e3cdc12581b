package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

const (
	DefaultMaxRetries   = 5
	DefaultRetryBackoff = 5 * time.Millisecond
)

// CoreUseCase 是帳本協調者 (Ledger Coordinator)
//
// 所有會修改餘額、交易紀錄、擁有物品的操作都必須經過這裡，
// 每個操作在一個原子範圍內 讀取 -> 驗證 -> 寫入。
type CoreUseCase struct {
	store        Store
	notifier     Notifier
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	maxRetries   int
	retryBackoff time.Duration
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

func WithNotifier(n Notifier) Option {
	return func(c *CoreUseCase) { c.notifier = n }
}

func WithMetrics(m *Metrics) Option {
	return func(c *CoreUseCase) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *CoreUseCase) { c.logger = l }
}

// WithClock 測試用
func WithClock(now func() time.Time) Option {
	return func(c *CoreUseCase) { c.now = now }
}

// WithRetry 設定衝突重試次數 (不含第一次) 與退避間隔
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *CoreUseCase) {
		c.maxRetries = maxRetries
		c.retryBackoff = backoff
	}
}

func NewCoreUseCase(store Store, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		store:        store,
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credit 入帳
//
// 參數:
//
//	ctx: 上下文
//	childID: 小孩 ID
//	amount: 星星數量 (必須 > 0)
//	description: 說明
//	ref: 來源事件 (可為 nil)
//
// 回傳:
//
//	error: 輸入錯誤或基礎設施錯誤
func (c *CoreUseCase) Credit(ctx context.Context, childID string, amount int64, description string, ref *domain.CausalRef) error {
	entry := domain.Entry{ChildID: childID, Amount: amount, Description: description, Ref: ref}
	if err := domain.Validate(entry); err != nil {
		c.metrics.invalid(opCredit)
		return err
	}
	return c.run(ctx, opCredit, childID, func(tx Tx) error {
		return c.credit(tx, entry, c.now())
	})
}

// Debit 扣款
//
// 回傳:
//
//	bool: false 代表星星不足，沒有任何寫入
//	error: 輸入錯誤或基礎設施錯誤
func (c *CoreUseCase) Debit(ctx context.Context, childID string, amount int64, description string, ref *domain.CausalRef) (bool, error) {
	entry := domain.Entry{ChildID: childID, Amount: amount, Description: description, Ref: ref}
	if err := domain.Validate(entry); err != nil {
		c.metrics.invalid(opDebit)
		return false, err
	}
	err := c.run(ctx, opDebit, childID, func(tx Tx) error {
		return c.debit(tx, entry, c.now())
	})
	return accepted(err)
}

// Purchase 購買造型物品
//
// 擁有檢查、餘額檢查、扣款、交易紀錄、擁有紀錄都在同一個原子範圍內，
// 同一物品的並發購買只會有一個成功。
//
// 回傳:
//
//	bool: false 代表已擁有或星星不足，沒有任何寫入
//	error: 輸入錯誤或基礎設施錯誤
func (c *CoreUseCase) Purchase(ctx context.Context, childID string, item domain.ShopItem) (bool, error) {
	if err := domain.ValidateID("child_id", childID); err != nil {
		c.metrics.invalid(opPurchase)
		return false, err
	}
	if err := domain.Validate(item); err != nil {
		c.metrics.invalid(opPurchase)
		return false, err
	}
	err := c.run(ctx, opPurchase, childID, func(tx Tx) error {
		now := c.now()
		// 先讀餘額，資料庫後端會在這裡鎖住該小孩的餘額列
		bal, err := tx.Balance(childID)
		if err != nil {
			return err
		}
		owned, err := tx.Owns(childID, item.ID)
		if err != nil {
			return err
		}
		if owned {
			return domain.ErrAlreadyOwned
		}
		if err := bal.Spend(item.Price, now); err != nil {
			return err
		}
		if err := tx.SaveBalance(bal); err != nil {
			return err
		}
		tran := domain.NewTransaction(childID, domain.TransactionTypeRedeem, item.Price,
			"Purchased "+item.Label(), domain.ShopItemRef(item.ID), now)
		if err := tx.AppendTransaction(tran); err != nil {
			return err
		}
		return tx.AddOwnership(domain.Ownership{ChildID: childID, ItemID: item.ID, PurchasedAt: now})
	})
	return accepted(err)
}

// RedeemReward 兌換獎勵，同一獎勵可重複兌換，只檢查餘額
//
// 回傳:
//
//	string: 兌換紀錄 ID (失敗時為空)
//	bool: false 代表星星不足
//	error: 輸入錯誤或基礎設施錯誤
func (c *CoreUseCase) RedeemReward(ctx context.Context, childID string, reward domain.Reward) (string, bool, error) {
	if err := domain.ValidateID("child_id", childID); err != nil {
		c.metrics.invalid(opRedeem)
		return "", false, err
	}
	if err := domain.Validate(reward); err != nil {
		c.metrics.invalid(opRedeem)
		return "", false, err
	}
	var redemptionID string
	err := c.run(ctx, opRedeem, childID, func(tx Tx) error {
		now := c.now()
		entry := domain.Entry{
			ChildID:     childID,
			Amount:      reward.Cost,
			Description: "Redeemed " + reward.Label(),
			Ref:         domain.RewardRef(reward.ID),
		}
		if err := c.debit(tx, entry, now); err != nil {
			return err
		}
		redemption := domain.NewRewardRedemption(childID, reward, now)
		if err := tx.SaveRedemption(redemption); err != nil {
			return err
		}
		redemptionID = redemption.ID
		return nil
	})
	ok, err := accepted(err)
	if !ok {
		return "", ok, err
	}
	return redemptionID, true, nil
}

// ApprovePayout 把任務提交改為 approved 並入帳，兩者在同一個原子範圍內
//
// 參數:
//
//	submissionID: 任務提交 ID
//	childID: 必須與提交的小孩相同
//	amount: 必須等於提交時固定的星星數
//	description: 交易說明
func (c *CoreUseCase) ApprovePayout(ctx context.Context, submissionID, childID string, amount int64, description string) error {
	if err := domain.ValidateID("submission_id", submissionID); err != nil {
		c.metrics.invalid(opApprove)
		return err
	}
	entry := domain.Entry{ChildID: childID, Amount: amount, Description: description, Ref: domain.TaskRef(submissionID)}
	if err := domain.Validate(entry); err != nil {
		c.metrics.invalid(opApprove)
		return err
	}
	return c.run(ctx, opApprove, childID, func(tx Tx) error {
		now := c.now()
		sub, err := tx.Submission(submissionID)
		if err != nil {
			return err
		}
		if sub.ChildID != childID {
			return fmt.Errorf("%w: submission %s belongs to another child", domain.ErrInvalidInput, submissionID)
		}
		if sub.Stars != amount {
			return fmt.Errorf("%w: payout %d does not match submission stars %d", domain.ErrInvalidInput, amount, sub.Stars)
		}
		if err := sub.MarkApproved(now); err != nil {
			return err
		}
		if err := tx.SaveSubmission(sub); err != nil {
			return err
		}
		return c.credit(tx, entry, now)
	})
}

// FulfillRedemption 標記兌換已交付，不影響帳本
func (c *CoreUseCase) FulfillRedemption(ctx context.Context, redemptionID string) error {
	if err := domain.ValidateID("redemption_id", redemptionID); err != nil {
		c.metrics.invalid(opFulfill)
		return err
	}
	r, err := c.store.GetRedemption(ctx, redemptionID)
	if err != nil {
		return err
	}
	return c.run(ctx, opFulfill, r.ChildID, func(tx Tx) error {
		current, err := tx.Redemption(redemptionID)
		if err != nil {
			return err
		}
		if err := current.MarkFulfilled(c.now()); err != nil {
			return err
		}
		return tx.SaveRedemption(current)
	})
}

// credit 入帳的共用路徑 (Credit 與 ApprovePayout)
func (c *CoreUseCase) credit(tx Tx, e domain.Entry, now time.Time) error {
	bal, err := tx.Balance(e.ChildID)
	if err != nil {
		return err
	}
	if err := bal.Earn(e.Amount, now); err != nil {
		return err
	}
	if err := tx.SaveBalance(bal); err != nil {
		return err
	}
	return tx.AppendTransaction(domain.NewTransaction(e.ChildID, domain.TransactionTypeEarn, e.Amount, e.Description, e.Ref, now))
}

// debit 扣款的共用路徑 (Debit 與 RedeemReward)
func (c *CoreUseCase) debit(tx Tx, e domain.Entry, now time.Time) error {
	bal, err := tx.Balance(e.ChildID)
	if err != nil {
		return err
	}
	if err := bal.Spend(e.Amount, now); err != nil {
		return err
	}
	if err := tx.SaveBalance(bal); err != nil {
		return err
	}
	return tx.AppendTransaction(domain.NewTransaction(e.ChildID, domain.TransactionTypeRedeem, e.Amount, e.Description, e.Ref, now))
}

// accepted 把預期中的拒絕 (星星不足、已擁有) 轉成 false
func accepted(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if domain.IsDeclined(err) {
		return false, nil
	}
	return false, err
}

// Store 回傳底層儲存 (唯讀查詢用)
func (c *CoreUseCase) Store() Reader {
	return c.store
}
