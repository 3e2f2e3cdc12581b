package memory

import (
	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// memTx 暫存一個原子範圍內的寫入，fn 成功後才整批 commit
//
// 讀取先看暫存再看已 commit 的資料。
type memTx struct {
	state        *state
	balances     map[string]domain.Balance
	balanceOrder []string
	transactions []domain.Transaction
	ownerships   map[[2]string]domain.Ownership
	ownOrder     [][2]string
	submissions  map[string]domain.TaskSubmission
	subOrder     []string
	redemptions  map[string]domain.RewardRedemption
	redOrder     []string
}

func newMemTx(s *state) *memTx {
	return &memTx{
		state:       s,
		balances:    make(map[string]domain.Balance),
		ownerships:  make(map[[2]string]domain.Ownership),
		submissions: make(map[string]domain.TaskSubmission),
		redemptions: make(map[string]domain.RewardRedemption),
	}
}

func (t *memTx) Balance(childID string) (domain.Balance, error) {
	if b, ok := t.balances[childID]; ok {
		return b, nil
	}
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()
	return t.state.balanceLocked(childID), nil
}

func (t *memTx) Owns(childID, itemID string) (bool, error) {
	if _, ok := t.ownerships[[2]string{childID, itemID}]; ok {
		return true, nil
	}
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()
	if c, ok := t.state.children[childID]; ok {
		_, owned := c.owned[itemID]
		return owned, nil
	}
	return false, nil
}

func (t *memTx) Submission(id string) (domain.TaskSubmission, error) {
	if sub, ok := t.submissions[id]; ok {
		return sub, nil
	}
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()
	sub, ok := t.state.submissions[id]
	if !ok {
		return domain.TaskSubmission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (t *memTx) Redemption(id string) (domain.RewardRedemption, error) {
	if r, ok := t.redemptions[id]; ok {
		return r, nil
	}
	t.state.mu.RLock()
	defer t.state.mu.RUnlock()
	r, ok := t.state.redemptions[id]
	if !ok {
		return domain.RewardRedemption{}, domain.ErrRedemptionNotFound
	}
	return r, nil
}

func (t *memTx) SaveBalance(b domain.Balance) error {
	if _, ok := t.balances[b.ChildID]; !ok {
		t.balanceOrder = append(t.balanceOrder, b.ChildID)
	}
	t.balances[b.ChildID] = b
	return nil
}

func (t *memTx) AppendTransaction(tran domain.Transaction) error {
	t.transactions = append(t.transactions, tran)
	return nil
}

func (t *memTx) AddOwnership(o domain.Ownership) error {
	key := [2]string{o.ChildID, o.ItemID}
	if _, ok := t.ownerships[key]; ok {
		return domain.ErrAlreadyOwned
	}
	owned, err := t.Owns(o.ChildID, o.ItemID)
	if err != nil {
		return err
	}
	if owned {
		return domain.ErrAlreadyOwned
	}
	t.ownerships[key] = o
	t.ownOrder = append(t.ownOrder, key)
	return nil
}

func (t *memTx) SaveSubmission(s domain.TaskSubmission) error {
	if _, ok := t.submissions[s.ID]; !ok {
		t.subOrder = append(t.subOrder, s.ID)
	}
	t.submissions[s.ID] = s
	return nil
}

func (t *memTx) SaveRedemption(r domain.RewardRedemption) error {
	if _, ok := t.redemptions[r.ID]; !ok {
		t.redOrder = append(t.redOrder, r.ID)
	}
	t.redemptions[r.ID] = r
	return nil
}

// batch 依寫入順序整理成一筆 commit
func (t *memTx) batch() *batch {
	b := &batch{Transactions: t.transactions}
	for _, id := range t.balanceOrder {
		b.Balances = append(b.Balances, t.balances[id])
	}
	for _, key := range t.ownOrder {
		b.Ownerships = append(b.Ownerships, t.ownerships[key])
	}
	for _, id := range t.subOrder {
		b.Submissions = append(b.Submissions, t.submissions[id])
	}
	for _, id := range t.redOrder {
		b.Redemptions = append(b.Redemptions, t.redemptions[id])
	}
	return b
}

var _ usecase.Tx = (*memTx)(nil)
