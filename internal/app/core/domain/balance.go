package domain

import "time"

// Balance 一位小孩的星星餘額
//
// TotalStars 是交易紀錄的累計結果 (earn 加、redeem 減)，
// LifetimeStars 只累計 earn，永遠不會減少。
type Balance struct {
	ChildID       string    `json:"child_id"`
	TotalStars    int64     `json:"total_stars"`
	LifetimeStars int64     `json:"lifetime_stars"`
	LastUpdated   time.Time `json:"last_updated"`
}

// NewBalance 建立空餘額，第一次入帳前的小孩都視為 {0, 0}
func NewBalance(childID string) Balance {
	return Balance{ChildID: childID}
}

// Earn 入帳
func (b *Balance) Earn(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	b.TotalStars += amount
	b.LifetimeStars += amount
	b.LastUpdated = at
	return nil
}

// Spend 扣款，lifetime 不變
func (b *Balance) Spend(amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrAmountMustBePositive
	}
	if b.TotalStars < amount {
		return ErrInsufficientFunds
	}
	b.TotalStars -= amount
	b.LastUpdated = at
	return nil
}

// Equal 比較數值與更新時間
func (b Balance) Equal(o Balance) bool {
	return b.ChildID == o.ChildID &&
		b.TotalStars == o.TotalStars &&
		b.LifetimeStars == o.LifetimeStars &&
		b.LastUpdated.Equal(o.LastUpdated)
}
