package projection

import (
	"sync"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// Provisional 樂觀更新的本地餘額
//
// UI 送出扣款前先 Apply 預期的變化，協調者回覆後 Confirm 或 Rollback；
// 收到權威快照時以 Reset 對齊。只影響顯示，不會寫回帳本。
//
// 帳本位置以交易 Seq 表示：快照帶著它涵蓋到的 Seq，Confirm 帶著回覆時讀到的 Seq。
// 快照與回覆的先後順序不固定，同一筆變化只會被算一次。
type Provisional struct {
	mu        sync.Mutex
	confirmed domain.Balance
	seq       uint64 // confirmed 涵蓋到的帳本位置
	// 已 commit 但 confirmed 尚未涵蓋的變化，key 為回覆帶回的帳本位置
	committed map[uint64]int64
	pending   map[uint64]int64
	next      uint64
}

func NewProvisional(authoritative domain.Balance, seq uint64) *Provisional {
	return &Provisional{
		confirmed: authoritative,
		seq:       seq,
		committed: make(map[uint64]int64),
		pending:   make(map[uint64]int64),
	}
}

// Apply 套用一筆暫定的變化 (扣款為負)，回傳 token
func (p *Provisional) Apply(delta int64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	p.pending[p.next] = delta
	return p.next
}

// Confirm 協調者接受
//
// 參數:
//
//	token: Apply 回傳的 token
//	seq: commit 之後讀到的帳本位置 (一定涵蓋這筆變化)
func (p *Provisional) Confirm(token, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delta, ok := p.pending[token]
	if !ok {
		return
	}
	delete(p.pending, token)
	if seq <= p.seq {
		// 快照先到，confirmed 已經包含這筆
		return
	}
	p.committed[seq] += delta
}

// Rollback 協調者拒絕：丟掉暫定的變化
func (p *Provisional) Rollback(token uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, token)
}

// Reset 收到權威快照，比目前舊的快照直接忽略
func (p *Provisional) Reset(authoritative domain.Balance, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.seq {
		return
	}
	p.confirmed = authoritative
	p.seq = seq
	for s := range p.committed {
		if s <= seq {
			delete(p.committed, s)
		}
	}
}

// Pending 尚未回覆的變化筆數
func (p *Provisional) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Balance 顯示用餘額 = 權威快照 + 已 commit 未涵蓋 + 未回覆
func (p *Provisional) Balance() domain.Balance {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := p.confirmed
	add := func(delta int64) {
		b.TotalStars += delta
		if delta > 0 {
			b.LifetimeStars += delta
		}
	}
	for _, delta := range p.committed {
		add(delta)
	}
	for _, delta := range p.pending {
		add(delta)
	}
	return b
}
