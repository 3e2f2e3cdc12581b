package sqlstore

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// forUpdate 悲觀鎖 (SELECT ... FOR UPDATE)，SQLite 以 BEGIN IMMEDIATE 鎖整個資料庫
var forUpdate = clause.Locking{Strength: "UPDATE"}

// gormTx 在一個資料庫交易內實作 usecase.Tx
type gormTx struct {
	db *gorm.DB
	// 本次交易中讀過的餘額列是否已存在，決定 SaveBalance 用 UPDATE 或 INSERT
	existing map[string]bool
}

func newGormTx(db *gorm.DB) *gormTx {
	return &gormTx{db: db, existing: make(map[string]bool)}
}

// Balance 讀取並鎖住餘額列
// 不存在時視為 {0, 0}；兩個交易同時第一次入帳會在 INSERT 時撞 primary key，由上層重試
func (t *gormTx) Balance(childID string) (domain.Balance, error) {
	var row sqlBalance
	err := t.db.Clauses(forUpdate).Where("child_id = ?", childID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t.existing[childID] = false
		return domain.NewBalance(childID), nil
	}
	if err != nil {
		return domain.Balance{}, err
	}
	t.existing[childID] = true
	return row.toDomain(), nil
}

func (t *gormTx) Owns(childID, itemID string) (bool, error) {
	var n int64
	err := t.db.Model(&sqlOwnership{}).Clauses(forUpdate).
		Where("child_id = ? AND item_id = ?", childID, itemID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *gormTx) Submission(id string) (domain.TaskSubmission, error) {
	var row sqlSubmission
	err := t.db.Clauses(forUpdate).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TaskSubmission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.TaskSubmission{}, err
	}
	return row.toDomain(), nil
}

func (t *gormTx) Redemption(id string) (domain.RewardRedemption, error) {
	var row sqlRedemption
	err := t.db.Clauses(forUpdate).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RewardRedemption{}, domain.ErrRedemptionNotFound
	}
	if err != nil {
		return domain.RewardRedemption{}, err
	}
	return row.toDomain(), nil
}

func (t *gormTx) SaveBalance(b domain.Balance) error {
	exists, seen := t.existing[b.ChildID]
	if !seen {
		// 沒讀過就寫：先讀一次取得鎖
		if _, err := t.Balance(b.ChildID); err != nil {
			return err
		}
		exists = t.existing[b.ChildID]
	}
	row := toSQLBalance(b)
	if exists {
		return t.db.Model(&sqlBalance{}).Where("child_id = ?", b.ChildID).Updates(map[string]any{
			"total_stars":    row.TotalStars,
			"lifetime_stars": row.LifetimeStars,
			"last_updated":   row.LastUpdated,
		}).Error
	}
	if err := t.db.Create(&row).Error; err != nil {
		return err
	}
	t.existing[b.ChildID] = true
	return nil
}

func (t *gormTx) AppendTransaction(tran domain.Transaction) error {
	row := toSQLTransaction(tran)
	return t.db.Create(&row).Error
}

func (t *gormTx) AddOwnership(o domain.Ownership) error {
	row := sqlOwnership{ChildID: o.ChildID, ItemID: o.ItemID, PurchasedAt: o.PurchasedAt.UTC()}
	return t.db.Create(&row).Error
}

func (t *gormTx) SaveSubmission(s domain.TaskSubmission) error {
	row := toSQLSubmission(s)
	return t.db.Save(&row).Error
}

func (t *gormTx) SaveRedemption(r domain.RewardRedemption) error {
	row := toSQLRedemption(r)
	return t.db.Save(&row).Error
}

var _ usecase.Tx = (*gormTx)(nil)
