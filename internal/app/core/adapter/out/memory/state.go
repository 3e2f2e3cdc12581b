package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/pkg/wal"
)

// childLedger 單一小孩的帳本資料
type childLedger struct {
	balance      domain.Balance
	transactions []domain.Transaction // 寫入順序
	owned        map[string]domain.Ownership
}

// batch 一次 commit 的全部寫入，也是 WAL 的一筆紀錄
type batch struct {
	Balances     []domain.Balance          `json:"balances,omitempty"`
	Transactions []domain.Transaction      `json:"transactions,omitempty"`
	Ownerships   []domain.Ownership        `json:"ownerships,omitempty"`
	Submissions  []domain.TaskSubmission   `json:"submissions,omitempty"`
	Redemptions  []domain.RewardRedemption `json:"redemptions,omitempty"`
}

func (b *batch) empty() bool {
	return len(b.Balances) == 0 && len(b.Transactions) == 0 && len(b.Ownerships) == 0 &&
		len(b.Submissions) == 0 && len(b.Redemptions) == 0
}

// state 兩種記憶體引擎共用的資料與讀取邏輯
//
// mu 只保護 map 本身；同一小孩的讀取 -> 驗證 -> 寫入 由各引擎自己序列化。
// commit 在一次 Lock 內套用整個 batch，讀取者不會看到只寫一半的結果。
type state struct {
	mu          sync.RWMutex
	children    map[string]*childLedger
	submissions map[string]domain.TaskSubmission
	redemptions map[string]domain.RewardRedemption
	seq         uint64
	// Write-Ahead Logging (nil 代表純記憶體)
	wal *wal.WAL
}

func newState(w *wal.WAL) *state {
	return &state{
		children:    make(map[string]*childLedger),
		submissions: make(map[string]domain.TaskSubmission),
		redemptions: make(map[string]domain.RewardRedemption),
		wal:         w,
	}
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有建構時呼叫 (單執行緒)
func (s *state) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var b batch
		if err := json.Unmarshal(jsonRaw, &b); err != nil {
			return fmt.Errorf("decode wal record: %w", err)
		}
		s.apply(&b)
		for _, t := range b.Transactions {
			if t.Seq > s.seq {
				s.seq = t.Seq
			}
		}
		return nil
	})
}

// commit 分配 Seq -> 寫 WAL -> 套用
func (s *state) commit(b *batch) error {
	if b.empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq
	for i := range b.Transactions {
		seq++
		b.Transactions[i].Seq = seq
	}
	if s.wal != nil {
		if err := s.wal.Write(b); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}
	s.seq = seq
	s.apply(b)
	return nil
}

// apply 套用 batch，呼叫端必須持有寫鎖 (或在恢復階段)
func (s *state) apply(b *batch) {
	for _, bal := range b.Balances {
		s.child(bal.ChildID).balance = bal
	}
	for _, t := range b.Transactions {
		c := s.child(t.ChildID)
		c.transactions = append(c.transactions, t)
	}
	for _, o := range b.Ownerships {
		c := s.child(o.ChildID)
		if _, ok := c.owned[o.ItemID]; !ok {
			c.owned[o.ItemID] = o
		}
	}
	for _, sub := range b.Submissions {
		s.submissions[sub.ID] = sub
	}
	for _, r := range b.Redemptions {
		s.redemptions[r.ID] = r
	}
}

func (s *state) child(childID string) *childLedger {
	c, ok := s.children[childID]
	if !ok {
		c = &childLedger{
			balance: domain.NewBalance(childID),
			owned:   make(map[string]domain.Ownership),
		}
		s.children[childID] = c
	}
	return c
}

// ---- 讀取 (usecase.Reader) ----

func (s *state) GetBalance(ctx context.Context, childID string) (domain.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balanceLocked(childID), nil
}

func (s *state) balanceLocked(childID string) domain.Balance {
	if c, ok := s.children[childID]; ok {
		return c.balance
	}
	return domain.NewBalance(childID)
}

func (s *state) ListTransactions(ctx context.Context, childID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[childID]
	if !ok {
		return []domain.Transaction{}, nil
	}
	return filter.Apply(c.transactions), nil
}

func (s *state) ListOwnership(ctx context.Context, childID string) ([]domain.Ownership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Ownership{}
	if c, ok := s.children[childID]; ok {
		for _, o := range c.owned {
			out = append(out, o)
		}
	}
	domain.SortOwnership(out)
	return out, nil
}

func (s *state) GetSubmission(ctx context.Context, id string) (domain.TaskSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.TaskSubmission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *state) GetRedemption(ctx context.Context, id string) (domain.RewardRedemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.redemptions[id]
	if !ok {
		return domain.RewardRedemption{}, domain.ErrRedemptionNotFound
	}
	return r, nil
}

func (s *state) ListRedemptions(ctx context.Context, childID string) ([]domain.RewardRedemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.RewardRedemption{}
	for _, r := range s.redemptions {
		if r.ChildID == childID {
			out = append(out, r)
		}
	}
	domain.SortRedemptionsNewestFirst(out)
	return out, nil
}

func (s *state) closeWAL() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}
