package grpc

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/catalog"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/projection"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, _, _ := newTestServer(t)
	return c
}

func newTestServer(t *testing.T) (*Client, *grpc.Server, *projection.Hub) {
	t.Helper()
	store, err := memory.NewMutexStore(nil)
	require.NoError(t, err)
	cat, err := catalog.NewStatic(
		[]domain.ShopItem{{ID: "hat", Name: "Red Hat", Price: 5}, {ID: "cape", Price: 20}},
		[]domain.Reward{{ID: "ice-cream", Name: "Ice Cream", Cost: 4}},
	)
	require.NoError(t, err)

	view := projection.NewView(store, 10)
	hub := projection.NewHub(view, nil)
	core := usecase.NewCoreUseCase(store, usecase.WithNotifier(hub))
	srv := NewGrpcServer(core, usecase.NewSubmissionWorkflow(core), view, hub, cat, nil)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryServerLogging(discardLogger())))
	RegisterLedgerServiceServer(s, srv)
	go func() { _ = s.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		s.Stop()
		_ = store.Close()
	})
	return NewClient(conn), s, hub
}

func TestServer_PurchaseFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Credit(ctx, "kid", 8, "chores"))

	ok, msg, err := c.Purchase(ctx, "kid", "cape")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.ErrInsufficientFunds.Error(), msg)

	ok, _, err = c.Purchase(ctx, "kid", "hat")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, msg, err = c.Purchase(ctx, "kid", "hat")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.ErrAlreadyOwned.Error(), msg)

	total, err := c.TotalStars(ctx, "kid")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	resp, err := c.Call(ctx, MethodListOwnership, map[string]any{"child_id": "kid"})
	require.NoError(t, err)
	owned := resp["owned"].([]any)
	require.Len(t, owned, 1)
	assert.Equal(t, "hat", owned[0].(map[string]any)["item_id"])
}

func TestServer_ReplyCarriesLedgerSeq(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first, err := c.Call(ctx, MethodCredit, map[string]any{"child_id": "kid", "amount": 8})
	require.NoError(t, err)
	second, err := c.Call(ctx, MethodPurchase, map[string]any{"child_id": "kid", "item_id": "hat"})
	require.NoError(t, err)
	require.Equal(t, true, second["success"])
	assert.Greater(t, second["seq"].(float64), first["seq"].(float64))
}

func TestServer_ErrorCodes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		req    map[string]any
		code   codes.Code
	}{
		{"zero amount", MethodCredit, map[string]any{"child_id": "kid", "amount": 0}, codes.InvalidArgument},
		{"fractional amount", MethodCredit, map[string]any{"child_id": "kid", "amount": 1.5}, codes.InvalidArgument},
		{"amount as string", MethodDebit, map[string]any{"child_id": "kid", "amount": "3"}, codes.InvalidArgument},
		{"missing child", MethodGetBalance, map[string]any{}, codes.InvalidArgument},
		{"unknown item", MethodPurchase, map[string]any{"child_id": "kid", "item_id": "crown"}, codes.NotFound},
		{"unknown reward", MethodRedeemReward, map[string]any{"child_id": "kid", "reward_id": "pony"}, codes.NotFound},
		{"unknown submission", MethodApproveSubmission, map[string]any{"submission_id": "nope"}, codes.NotFound},
		{"bad type filter", MethodListTransactions, map[string]any{"child_id": "kid", "type": "refund"}, codes.InvalidArgument},
		{"bad time", MethodListTransactions, map[string]any{"child_id": "kid", "since": "yesterday"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Call(ctx, tt.method, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestServer_SubmissionFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	resp, err := c.Call(ctx, MethodSubmitTask, map[string]any{"child_id": "kid", "task_template_id": "dishes", "stars": 2})
	require.NoError(t, err)
	sub := resp["submission"].(map[string]any)
	id := sub["id"].(string)
	assert.Equal(t, "submitted", sub["status"])

	resp, err = c.Call(ctx, MethodApproveSubmission, map[string]any{"submission_id": id})
	require.NoError(t, err)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "approved", resp["submission"].(map[string]any)["status"])
	assert.Equal(t, float64(2), resp["balance"].(map[string]any)["total_stars"])

	_, err = c.Call(ctx, MethodApproveSubmission, map[string]any{"submission_id": id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	resp, err = c.Call(ctx, MethodSubmitTask, map[string]any{"child_id": "kid", "task_template_id": "bed", "stars": 1})
	require.NoError(t, err)
	other := resp["submission"].(map[string]any)["id"].(string)
	resp, err = c.Call(ctx, MethodRejectSubmission, map[string]any{"submission_id": other, "reason": "messy"})
	require.NoError(t, err)
	assert.Equal(t, "messy", resp["submission"].(map[string]any)["reject_reason"])

	resp, err = c.Call(ctx, MethodListTransactions, map[string]any{"child_id": "kid", "type": "earn"})
	require.NoError(t, err)
	trans := resp["transactions"].([]any)
	require.Len(t, trans, 1)
	assert.Equal(t, id, trans[0].(map[string]any)["task_submission_id"])
}

func TestServer_RedeemAndFulfill(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Credit(ctx, "kid", 8, ""))

	var ids []string
	for i := 0; i < 2; i++ {
		resp, err := c.Call(ctx, MethodRedeemReward, map[string]any{"child_id": "kid", "reward_id": "ice-cream"})
		require.NoError(t, err)
		require.Equal(t, true, resp["success"])
		ids = append(ids, resp["redemption_id"].(string))
	}
	resp, err := c.Call(ctx, MethodRedeemReward, map[string]any{"child_id": "kid", "reward_id": "ice-cream"})
	require.NoError(t, err)
	assert.Equal(t, false, resp["success"])

	_, err = c.Call(ctx, MethodFulfillRedemption, map[string]any{"redemption_id": ids[0]})
	require.NoError(t, err)
	_, err = c.Call(ctx, MethodFulfillRedemption, map[string]any{"redemption_id": ids[0]})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	resp, err = c.Call(ctx, MethodListRedemptions, map[string]any{"child_id": "kid"})
	require.NoError(t, err)
	assert.Len(t, resp["redemptions"].([]any), 2)
}

func TestServer_WeeklyReportAndAudit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Credit(ctx, "kid", 6, ""))
	_, err := c.Call(ctx, MethodDebit, map[string]any{"child_id": "kid", "amount": 2})
	require.NoError(t, err)

	resp, err := c.Call(ctx, MethodWeeklyReport, map[string]any{"child_id": "kid"})
	require.NoError(t, err)
	assert.Equal(t, float64(6), resp["stars_earned"])
	assert.Equal(t, float64(4), resp["total_stars"])

	lastWeek := time.Now().UTC().Add(-3 * projection.Week).Format(time.RFC3339)
	resp, err = c.Call(ctx, MethodWeeklyReport, map[string]any{"child_id": "kid", "week_start": lastWeek})
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp["stars_earned"])

	resp, err = c.Call(ctx, MethodAudit, map[string]any{"child_id": "kid"})
	require.NoError(t, err)
	assert.Equal(t, true, resp["consistent"])
	assert.Equal(t, float64(2), resp["transactions"])
}

func TestServer_WatchChild(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := c.Watch(ctx, "kid")
	require.NoError(t, err)
	snap, err := w.Recv()
	require.NoError(t, err)
	assert.Equal(t, float64(0), snap["balance"].(map[string]any)["total_stars"])

	require.NoError(t, c.Credit(ctx, "kid", 3, ""))
	snap, err = w.Recv()
	require.NoError(t, err)
	assert.Equal(t, float64(3), snap["balance"].(map[string]any)["total_stars"])
}

func TestShutdown_EndsWatchStreams(t *testing.T) {
	c, s, hub := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := c.Watch(ctx, "kid")
	require.NoError(t, err)
	_, err = w.Recv()
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() { done <- Shutdown(s, hub, 3*time.Second) }()
	select {
	case graceful := <-done:
		assert.True(t, graceful)
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown blocked by an open watch stream")
	}

	_, err = w.Recv()
	assert.ErrorIs(t, err, io.EOF)

	// 關閉後不再接受新的訂閱
	_, err = hub.Subscribe(context.Background(), "kid")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestIntField(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{"n": 42, "f": 1.25})
	require.NoError(t, err)

	n, err := intField(req, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	_, err = intField(req, "f")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	missing, err := intField(req, "missing")
	require.NoError(t, err)
	assert.Zero(t, missing)
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Aborted, status.Code(toStatus(domain.ErrRetriesExhausted)))
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(domain.ErrBackendUnavailable)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
	assert.NoError(t, toStatus(nil))
}
