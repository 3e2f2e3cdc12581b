package usecase_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// engines 兩種記憶體引擎都必須通過相同的測試
var engines = map[string]func(t *testing.T) usecase.Store{
	"mutex": func(t *testing.T) usecase.Store {
		s, err := memory.NewMutexStore(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
	"sequencer": func(t *testing.T) usecase.Store {
		s, err := memory.NewSequencedStore(nil, 0)
		require.NoError(t, err)
		s.Start(context.Background())
		t.Cleanup(func() { _ = s.Close() })
		return s
	},
}

func forEachEngine(t *testing.T, fn func(t *testing.T, store usecase.Store)) {
	for name, open := range engines {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// fixedClock 每次呼叫前進一秒，讓交易時間可預測又不重複
func fixedClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newCore(store usecase.Store, opts ...usecase.Option) *usecase.CoreUseCase {
	opts = append([]usecase.Option{usecase.WithClock(fixedClock()), usecase.WithRetry(3, 0)}, opts...)
	return usecase.NewCoreUseCase(store, opts...)
}

// seed 給小孩一個已知的起始餘額
func seed(t *testing.T, core *usecase.CoreUseCase, childID string, earn, spend int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, core.Credit(ctx, childID, earn, "seed", nil))
	if spend > 0 {
		ok, err := core.Debit(ctx, childID, spend, "seed spend", nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// assertReplayConsistent 交易紀錄重播必須等於儲存的餘額
func assertReplayConsistent(t *testing.T, store usecase.Reader, childID string) {
	t.Helper()
	ctx := context.Background()
	bal, err := store.GetBalance(ctx, childID)
	require.NoError(t, err)
	trans, err := store.ListTransactions(ctx, childID, domain.TransactionFilter{})
	require.NoError(t, err)
	replayed := domain.Replay(childID, trans)
	require.Equal(t, bal.TotalStars, replayed.TotalStars, "total_stars")
	require.Equal(t, bal.LifetimeStars, replayed.LifetimeStars, "lifetime_stars")
	require.GreaterOrEqual(t, bal.TotalStars, int64(0))
}

// conflictStore 前 n 次 Atomically 回傳 ErrConflict (不執行 fn)
type conflictStore struct {
	usecase.Store
	remaining atomic.Int64
	calls     atomic.Int64
}

func (s *conflictStore) Atomically(ctx context.Context, childID string, fn func(tx usecase.Tx) error) error {
	s.calls.Add(1)
	if s.remaining.Add(-1) >= 0 {
		return domain.ErrConflict
	}
	return s.Store.Atomically(ctx, childID, fn)
}

// recordingNotifier 記錄 Publish 的小孩
type recordingNotifier struct {
	published chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{published: make(chan string, 64)}
}

func (n *recordingNotifier) Publish(ctx context.Context, childID string) {
	n.published <- childID
}

// counterValue 從 registry 讀取 counter 的值，找不到時回傳 0
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
