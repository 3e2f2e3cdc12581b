package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-star-ledger/pkg/database"
)

// Store 以 GORM 實作的持久化帳本 (MySQL / SQLite)
type Store struct {
	client *database.Client
}

func NewStore(client *database.Client) *Store {
	return &Store{client: client}
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(allModels()...)
}

// Atomically 在一個資料庫交易內執行 fn
//
// 參數:
//
//	ctx: 上下文
//	childID: 小孩 ID (資料庫以列鎖隔離，這裡不需要)
//	fn: 交易內容，回傳錯誤時 rollback
//
// 回傳:
//
//	error: fn 的錯誤；deadlock / lock timeout / duplicate key / busy 轉為 domain.ErrConflict
func (s *Store) Atomically(ctx context.Context, childID string, fn func(tx usecase.Tx) error) error {
	err := s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormTx(tx))
	})
	return translate(err)
}

// GetBalance 取得餘額，不存在時回傳 {0, 0}
func (s *Store) GetBalance(ctx context.Context, childID string) (domain.Balance, error) {
	var row sqlBalance
	err := s.client.DB().WithContext(ctx).Where("child_id = ?", childID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewBalance(childID), nil
	}
	if err != nil {
		return domain.Balance{}, err
	}
	return row.toDomain(), nil
}

// ListTransactions 依 created_at 由新到舊，同時間依寫入順序 (seq)
func (s *Store) ListTransactions(ctx context.Context, childID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	q := s.client.DB().WithContext(ctx).Where("child_id = ?", childID)
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []sqlTransaction
	if err := q.Order("created_at DESC").Order("seq DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) ListOwnership(ctx context.Context, childID string) ([]domain.Ownership, error) {
	var rows []sqlOwnership
	err := s.client.DB().WithContext(ctx).
		Where("child_id = ?", childID).
		Order("purchased_at ASC").Order("item_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ownership, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (domain.TaskSubmission, error) {
	var row sqlSubmission
	err := s.client.DB().WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TaskSubmission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.TaskSubmission{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetRedemption(ctx context.Context, id string) (domain.RewardRedemption, error) {
	var row sqlRedemption
	err := s.client.DB().WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RewardRedemption{}, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return domain.RewardRedemption{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListRedemptions(ctx context.Context, childID string) ([]domain.RewardRedemption, error) {
	var rows []sqlRedemption
	err := s.client.DB().WithContext(ctx).
		Where("child_id = ?", childID).
		Order("redeemed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.RewardRedemption, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Close 關閉資料庫連線
func (s *Store) Close() error {
	return s.client.Close()
}

var _ usecase.Store = (*Store)(nil)
