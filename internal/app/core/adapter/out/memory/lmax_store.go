package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-star-ledger/pkg/wal"
)

// DefaultQueueSize 輸送帶預設長度
const DefaultQueueSize = 1000

// txRequest 交易請求包裝 channel，讓 Atomically 可以等待結果
type txRequest struct {
	fn     func(tx usecase.Tx) error
	result chan error
}

// SequencedStore 單一寫入者 (LMAX 風格) 的記憶體帳本
//
// Atomically -> Channel -> Run Loop (唯一寫入者) -> WAL -> Map Update -> Result Channel -> Atomically
//
// 所有原子範圍依序執行，不需要每個小孩一把鎖。
type SequencedStore struct {
	*state
	// 輸送帶 負責接收交易
	requests chan *txRequest
	// Pool 減少 GC 壓力
	requestPool sync.Pool

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSequencedStore 建立一個新的 SequencedStore 實例，需呼叫 Start 啟動
//
// 參數:
//
//	w: Write-Ahead Log 實例 (可為 nil)
//	queueSize: 輸送帶長度，<= 0 時使用 DefaultQueueSize
//
// 回傳:
//
//	*SequencedStore: 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewSequencedStore(w *wal.WAL, queueSize int) (*SequencedStore, error) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	store := &SequencedStore{
		state:    newState(w),
		requests: make(chan *txRequest, queueSize),
		requestPool: sync.Pool{
			New: func() interface{} {
				return &txRequest{result: make(chan error, 1)}
			},
		},
		done: make(chan struct{}),
	}
	// 在啟動前先恢復資料
	if err := store.recoverFromWAL(); err != nil {
		return nil, err
	}
	return store, nil
}

// Start 啟動核心引擎 (非同步)，ctx 結束或 Close 時停止
func (s *SequencedStore) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

// Atomically 把交易放上輸送帶並等待結果
func (s *SequencedStore) Atomically(ctx context.Context, childID string, fn func(tx usecase.Tx) error) error {
	req := s.requestPool.Get().(*txRequest)
	req.fn = fn

	select {
	case s.requests <- req:
	case <-ctx.Done():
		req.fn = nil
		s.requestPool.Put(req)
		return ctx.Err()
	case <-s.done:
		return domain.ErrBackendUnavailable
	}

	select {
	case err := <-req.result:
		req.fn = nil
		s.requestPool.Put(req)
		return err
	case <-s.done:
		// run loop 結束前會把輸送帶清空，結果若已送出一定拿得到
		select {
		case err := <-req.result:
			return err
		default:
			return domain.ErrBackendUnavailable
		}
	}
}

func (s *SequencedStore) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的交易處理完
			s.drain()
			return
		case req := <-s.requests:
			s.process(req)
		}
	}
}

func (s *SequencedStore) drain() {
	for {
		select {
		case req := <-s.requests:
			s.process(req)
		default:
			return
		}
	}
}

// process 處理單筆交易並回傳結果
//
// fn panic 時只讓這筆交易失敗，暫存的寫入丟棄，run loop 繼續服務其他請求。
func (s *SequencedStore) process(req *txRequest) {
	defer func() {
		if r := recover(); r != nil {
			req.result <- fmt.Errorf("sequenced transaction panicked: %v", r)
		}
	}()
	tx := newMemTx(s.state)
	if err := req.fn(tx); err != nil {
		req.result <- err
		return
	}
	req.result <- s.commit(tx.batch())
}

// Close 停止 run loop 並關閉 WAL
func (s *SequencedStore) Close() error {
	// 從未啟動：直接標記結束，之後的 Start 不再生效
	s.startOnce.Do(func() { close(s.done) })
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.closeWAL()
}

var _ usecase.Store = (*SequencedStore)(nil)
