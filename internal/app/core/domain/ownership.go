package domain

import (
	"sort"
	"time"
)

// Ownership 小孩擁有的造型物品，購買後永久存在，每個 (ChildID, ItemID) 最多一筆
type Ownership struct {
	ChildID     string    `json:"child_id"`
	ItemID      string    `json:"item_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// SortOwnership 依購買時間排序，同時間依 ItemID
func SortOwnership(owned []Ownership) {
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].PurchasedAt.Equal(owned[j].PurchasedAt) {
			return owned[i].PurchasedAt.Before(owned[j].PurchasedAt)
		}
		return owned[i].ItemID < owned[j].ItemID
	})
}
