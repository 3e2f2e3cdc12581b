package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType string

const (
	// 入帳
	TransactionTypeEarn TransactionType = "earn"
	// 扣款
	TransactionTypeRedeem TransactionType = "redeem"
)

// RefKind 交易的來源事件種類
type RefKind string

const (
	RefTaskSubmission RefKind = "task_submission"
	RefReward         RefKind = "reward"
	RefShopItem       RefKind = "shop_item"
)

// CausalRef 指向造成這筆交易的事件，每筆交易最多一個
type CausalRef struct {
	Kind RefKind `json:"kind" validate:"oneof=task_submission reward shop_item"`
	ID   string  `json:"id" validate:"required,max=64"`
}

func TaskRef(submissionID string) *CausalRef {
	return &CausalRef{Kind: RefTaskSubmission, ID: submissionID}
}

func RewardRef(rewardID string) *CausalRef {
	return &CausalRef{Kind: RefReward, ID: rewardID}
}

func ShopItemRef(itemID string) *CausalRef {
	return &CausalRef{Kind: RefShopItem, ID: itemID}
}

// Transaction 星星交易紀錄，寫入後不可修改
type Transaction struct {
	// ID: 隨機 UUID，只負責唯一性
	ID uuid.UUID `json:"id"`
	// Seq: 由儲存層依寫入順序分配，負責排序
	Seq              uint64          `json:"seq"`
	ChildID          string          `json:"child_id"`
	Type             TransactionType `json:"type"`
	Amount           int64           `json:"amount"`
	Description      string          `json:"description"`
	TaskSubmissionID string          `json:"task_submission_id,omitempty"`
	RewardID         string          `json:"reward_id,omitempty"`
	ShopItemID       string          `json:"shop_item_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewTransaction 建立一筆新的交易 (Seq 由儲存層填入)
func NewTransaction(childID string, typ TransactionType, amount int64, description string, ref *CausalRef, at time.Time) Transaction {
	tran := Transaction{
		ID:          uuid.New(),
		ChildID:     childID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		CreatedAt:   at,
	}
	if ref != nil {
		switch ref.Kind {
		case RefTaskSubmission:
			tran.TaskSubmissionID = ref.ID
		case RefReward:
			tran.RewardID = ref.ID
		case RefShopItem:
			tran.ShopItemID = ref.ID
		}
	}
	return tran
}

// SignedAmount earn 為正，redeem 為負
func (t Transaction) SignedAmount() int64 {
	if t.Type == TransactionTypeRedeem {
		return -t.Amount
	}
	return t.Amount
}

// Replay 由交易紀錄重算餘額
func Replay(childID string, trans []Transaction) Balance {
	b := NewBalance(childID)
	for _, t := range trans {
		b.TotalStars += t.SignedAmount()
		if t.Type == TransactionTypeEarn {
			b.LifetimeStars += t.Amount
		}
		if t.CreatedAt.After(b.LastUpdated) {
			b.LastUpdated = t.CreatedAt
		}
	}
	return b
}

// SortNewestFirst 依 CreatedAt 由新到舊排序，時間相同時以寫入順序 (Seq) 決定
func SortNewestFirst(trans []Transaction) {
	sort.SliceStable(trans, func(i, j int) bool {
		if !trans[i].CreatedAt.Equal(trans[j].CreatedAt) {
			return trans[i].CreatedAt.After(trans[j].CreatedAt)
		}
		return trans[i].Seq > trans[j].Seq
	})
}

// TransactionFilter 查詢交易紀錄的條件，零值代表不限制
type TransactionFilter struct {
	Type  TransactionType
	Since time.Time // inclusive
	Until time.Time // exclusive
	Limit int
}

// Match 單筆交易是否符合條件 (不含 Limit)
func (f TransactionFilter) Match(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && t.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !t.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

// Apply 過濾、排序 (新到舊) 並截斷，回傳新的 slice
func (f TransactionFilter) Apply(trans []Transaction) []Transaction {
	out := make([]Transaction, 0, len(trans))
	for _, t := range trans {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SumEarned 加總 earn 金額
func SumEarned(trans []Transaction) int64 {
	var total int64
	for _, t := range trans {
		if t.Type == TransactionTypeEarn {
			total += t.Amount
		}
	}
	return total
}
