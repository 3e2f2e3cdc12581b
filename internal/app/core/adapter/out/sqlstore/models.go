package sqlstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// sqlBalance 對應 star_balances 表
type sqlBalance struct {
	ChildID       string `gorm:"primaryKey;size:64"`
	TotalStars    int64  `gorm:"not null;default:0"`
	LifetimeStars int64  `gorm:"not null;default:0"`
	LastUpdated   time.Time
}

func (*sqlBalance) TableName() string {
	return "star_balances"
}

// sqlTransaction 對應 star_transactions 表
// Seq 自增，負責排序；ID 是隨機 UUID，負責唯一性
type sqlTransaction struct {
	Seq              uint64    `gorm:"primaryKey;autoIncrement"`
	ID               string    `gorm:"size:36;not null;uniqueIndex"`
	ChildID          string    `gorm:"size:64;not null;index:idx_star_tx_child_created,priority:1"`
	Type             string    `gorm:"size:8;not null"`
	Amount           int64     `gorm:"not null"`
	Description      string    `gorm:"size:256"`
	TaskSubmissionID *string   `gorm:"size:64"`
	RewardID         *string   `gorm:"size:64"`
	ShopItemID       *string   `gorm:"size:64"`
	CreatedAt        time.Time `gorm:"not null;index:idx_star_tx_child_created,priority:2"`
}

func (*sqlTransaction) TableName() string {
	return "star_transactions"
}

// sqlOwnership 對應 star_ownerships 表，複合主鍵保證每對 (child, item) 最多一筆
type sqlOwnership struct {
	ChildID     string `gorm:"primaryKey;size:64"`
	ItemID      string `gorm:"primaryKey;size:64"`
	PurchasedAt time.Time
}

func (*sqlOwnership) TableName() string {
	return "star_ownerships"
}

// sqlSubmission 對應 task_submissions 表
type sqlSubmission struct {
	ID             string `gorm:"primaryKey;size:36"`
	TaskTemplateID string `gorm:"size:64;not null"`
	ChildID        string `gorm:"size:64;not null;index"`
	Status         string `gorm:"size:16;not null"`
	Stars          int64  `gorm:"not null"`
	RejectReason   string `gorm:"size:256"`
	SubmittedAt    time.Time
	ReviewedAt     *time.Time
}

func (*sqlSubmission) TableName() string {
	return "task_submissions"
}

// sqlRedemption 對應 reward_redemptions 表
type sqlRedemption struct {
	ID          string `gorm:"primaryKey;size:36"`
	RewardID    string `gorm:"size:64;not null"`
	ChildID     string `gorm:"size:64;not null;index"`
	StarsSpent  int64  `gorm:"not null"`
	Status      string `gorm:"size:16;not null"`
	RedeemedAt  time.Time
	FulfilledAt *time.Time
}

func (*sqlRedemption) TableName() string {
	return "reward_redemptions"
}

func allModels() []any {
	return []any{&sqlBalance{}, &sqlTransaction{}, &sqlOwnership{}, &sqlSubmission{}, &sqlRedemption{}}
}

// ---- domain <-> sql ----

func toSQLBalance(b domain.Balance) sqlBalance {
	return sqlBalance{
		ChildID:       b.ChildID,
		TotalStars:    b.TotalStars,
		LifetimeStars: b.LifetimeStars,
		LastUpdated:   b.LastUpdated.UTC(),
	}
}

func (r sqlBalance) toDomain() domain.Balance {
	return domain.Balance{
		ChildID:       r.ChildID,
		TotalStars:    r.TotalStars,
		LifetimeStars: r.LifetimeStars,
		LastUpdated:   r.LastUpdated.UTC(),
	}
}

func toSQLTransaction(t domain.Transaction) sqlTransaction {
	return sqlTransaction{
		ID:               t.ID.String(),
		ChildID:          t.ChildID,
		Type:             string(t.Type),
		Amount:           t.Amount,
		Description:      t.Description,
		TaskSubmissionID: nullable(t.TaskSubmissionID),
		RewardID:         nullable(t.RewardID),
		ShopItemID:       nullable(t.ShopItemID),
		CreatedAt:        t.CreatedAt.UTC(),
	}
}

func (r sqlTransaction) toDomain() domain.Transaction {
	id, _ := uuid.Parse(r.ID)
	return domain.Transaction{
		ID:               id,
		Seq:              r.Seq,
		ChildID:          r.ChildID,
		Type:             domain.TransactionType(r.Type),
		Amount:           r.Amount,
		Description:      r.Description,
		TaskSubmissionID: deref(r.TaskSubmissionID),
		RewardID:         deref(r.RewardID),
		ShopItemID:       deref(r.ShopItemID),
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func (r sqlOwnership) toDomain() domain.Ownership {
	return domain.Ownership{ChildID: r.ChildID, ItemID: r.ItemID, PurchasedAt: r.PurchasedAt.UTC()}
}

func toSQLSubmission(s domain.TaskSubmission) sqlSubmission {
	return sqlSubmission{
		ID:             s.ID,
		TaskTemplateID: s.TaskTemplateID,
		ChildID:        s.ChildID,
		Status:         string(s.Status),
		Stars:          s.Stars,
		RejectReason:   s.RejectReason,
		SubmittedAt:    s.SubmittedAt.UTC(),
		ReviewedAt:     utcPtr(s.ReviewedAt),
	}
}

func (r sqlSubmission) toDomain() domain.TaskSubmission {
	return domain.TaskSubmission{
		ID:             r.ID,
		TaskTemplateID: r.TaskTemplateID,
		ChildID:        r.ChildID,
		Status:         domain.SubmissionStatus(r.Status),
		Stars:          r.Stars,
		RejectReason:   r.RejectReason,
		SubmittedAt:    r.SubmittedAt.UTC(),
		ReviewedAt:     utcPtr(r.ReviewedAt),
	}
}

func toSQLRedemption(d domain.RewardRedemption) sqlRedemption {
	return sqlRedemption{
		ID:          d.ID,
		RewardID:    d.RewardID,
		ChildID:     d.ChildID,
		StarsSpent:  d.StarsSpent,
		Status:      string(d.Status),
		RedeemedAt:  d.RedeemedAt.UTC(),
		FulfilledAt: utcPtr(d.FulfilledAt),
	}
}

func (r sqlRedemption) toDomain() domain.RewardRedemption {
	return domain.RewardRedemption{
		ID:          r.ID,
		RewardID:    r.RewardID,
		ChildID:     r.ChildID,
		StarsSpent:  r.StarsSpent,
		Status:      domain.RedemptionStatus(r.Status),
		RedeemedAt:  r.RedeemedAt.UTC(),
		FulfilledAt: utcPtr(r.FulfilledAt),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
