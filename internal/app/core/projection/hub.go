package projection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// Hub 把帳本的變動推送給訂閱者
//
// 協調者 commit 後呼叫 Publish，Hub 重新讀取快照並送給該小孩的所有訂閱者。
// 每個訂閱者只保留最新一份快照，慢的訂閱者會跳過中間的版本。
type Hub struct {
	view   *View
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool

	// 同一時間只有一個 Publish 在讀取與推送，避免舊快照蓋過新快照
	publishMu sync.Mutex
}

type subscription struct {
	ch chan Snapshot
}

func NewHub(view *View, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		view:   view,
		logger: logger,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Subscribe 訂閱小孩的快照，先送出目前的快照；ctx 結束時關閉 channel
//
// 先註冊再讀快照：註冊之後的 commit 一定會再 Publish 一次。
func (h *Hub) Subscribe(ctx context.Context, childID string) (<-chan Snapshot, error) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	sub := &subscription{ch: make(chan Snapshot, 1)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, domain.ErrBackendUnavailable
	}
	if h.subs[childID] == nil {
		h.subs[childID] = make(map[*subscription]struct{})
	}
	h.subs[childID][sub] = struct{}{}
	h.mu.Unlock()

	snap, err := h.view.Snapshot(ctx, childID)
	if err != nil {
		h.unsubscribe(childID, sub)
		return nil, err
	}
	sub.ch <- snap

	go func() {
		<-ctx.Done()
		h.unsubscribe(childID, sub)
	}()
	return sub.ch, nil
}

func (h *Hub) unsubscribe(childID string, sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[childID][sub]; !ok {
		return
	}
	delete(h.subs[childID], sub)
	if len(h.subs[childID]) == 0 {
		delete(h.subs, childID)
	}
	close(sub.ch)
}

// Close 關閉所有訂閱的 channel，之後的 Subscribe 回傳 ErrBackendUnavailable
//
// 服務關閉時先呼叫，讓 WatchChild 的 stream 結束，GracefulStop 才不會一直等。
func (h *Hub) Close() {
	// 與 Subscribe 的首次送出互斥，避免送到已關閉的 channel
	h.publishMu.Lock()
	defer h.publishMu.Unlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for childID, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subs, childID)
	}
}

// Subscribers 目前的訂閱數
func (h *Hub) Subscribers(childID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[childID])
}

// Publish implements usecase.Notifier
func (h *Hub) Publish(ctx context.Context, childID string) {
	if h.Subscribers(childID) == 0 {
		return
	}
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	snap, err := h.view.Snapshot(context.WithoutCancel(ctx), childID)
	if err != nil {
		h.logger.Error("projection snapshot failed", slog.String("child_id", childID), slog.Any("error", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[childID] {
		// 丟掉還沒被讀走的舊快照
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}

var _ usecase.Notifier = (*Hub)(nil)
