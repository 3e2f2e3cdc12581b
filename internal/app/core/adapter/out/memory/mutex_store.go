package memory

import (
	"context"
	"sync"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-star-ledger/pkg/wal"
)

// MutexStore 是一個以 Mutex 實現的記憶體帳本
//
// 結構:
//
//	state: 帳本資料 (map 由 RWMutex 保護)
//	locks: 每個小孩一把 Mutex，整個 讀取 -> 驗證 -> commit 期間持有
//
// 不同小孩的操作不會互相等待。
type MutexStore struct {
	*state
	locks sync.Map // map[string]*sync.Mutex
}

// NewMutexStore 建立一個新的 MutexStore 實例
//
// 參數:
//
//	w: Write-Ahead Log 實例 (nil 代表不持久化，離線/展示用)
//
// 回傳:
//
//	*MutexStore: MutexStore 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexStore(w *wal.WAL) (*MutexStore, error) {
	store := &MutexStore{state: newState(w)}
	if err := store.recoverFromWAL(); err != nil {
		return nil, err
	}
	return store, nil
}

// Atomically 在小孩的鎖內執行 fn，成功後整批 commit
//
// 參數:
//
//	ctx: 上下文
//	childID: 小孩 ID (隔離單位)
//	fn: 交易內容，回傳錯誤時丟棄所有暫存寫入
//
// 回傳:
//
//	error: fn 的錯誤或 commit 錯誤
func (m *MutexStore) Atomically(ctx context.Context, childID string, fn func(tx usecase.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.lockFor(childID)
	lock.Lock()
	defer lock.Unlock()

	tx := newMemTx(m.state)
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx.batch())
}

func (m *MutexStore) lockFor(childID string) *sync.Mutex {
	if v, ok := m.locks.Load(childID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := m.locks.LoadOrStore(childID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Close 關閉 WAL
func (m *MutexStore) Close() error {
	return m.closeWAL()
}

var _ usecase.Store = (*MutexStore)(nil)
