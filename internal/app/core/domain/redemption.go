package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RedemptionStatus 兌換狀態
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionFulfilled RedemptionStatus = "fulfilled"
)

// RewardRedemption 獎勵兌換紀錄，同一個獎勵可以兌換多次
type RewardRedemption struct {
	ID          string           `json:"id"`
	RewardID    string           `json:"reward_id"`
	ChildID     string           `json:"child_id"`
	StarsSpent  int64            `json:"stars_spent"`
	Status      RedemptionStatus `json:"status"`
	RedeemedAt  time.Time        `json:"redeemed_at"`
	FulfilledAt *time.Time       `json:"fulfilled_at,omitempty"`
}

func NewRewardRedemption(childID string, reward Reward, at time.Time) RewardRedemption {
	return RewardRedemption{
		ID:         uuid.NewString(),
		RewardID:   reward.ID,
		ChildID:    childID,
		StarsSpent: reward.Cost,
		Status:     RedemptionPending,
		RedeemedAt: at,
	}
}

// MarkFulfilled 家長交付獎勵
func (r *RewardRedemption) MarkFulfilled(at time.Time) error {
	if r.Status == RedemptionFulfilled {
		return ErrRedemptionFulfilled
	}
	r.Status = RedemptionFulfilled
	r.FulfilledAt = &at
	return nil
}

// SortRedemptionsNewestFirst 依兌換時間由新到舊
func SortRedemptionsNewestFirst(rs []RewardRedemption) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].RedeemedAt.After(rs[j].RedeemedAt)
	})
}
