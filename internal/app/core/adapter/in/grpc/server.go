package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/projection"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
)

// GrpcServer 帳本的 gRPC 入口
//
// 寫入走 CoreUseCase / SubmissionWorkflow，查詢走 projection.View。
// 餘額不足、已擁有屬於軟性失敗，回傳 success=false 而不是 gRPC 錯誤。
type GrpcServer struct {
	core     *usecase.CoreUseCase
	workflow *usecase.SubmissionWorkflow
	view     *projection.View
	hub      *projection.Hub
	catalog  usecase.Catalog
	logger   *slog.Logger
}

func NewGrpcServer(core *usecase.CoreUseCase, workflow *usecase.SubmissionWorkflow, view *projection.View, hub *projection.Hub, catalog usecase.Catalog, logger *slog.Logger) *GrpcServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrpcServer{
		core:     core,
		workflow: workflow,
		view:     view,
		hub:      hub,
		catalog:  catalog,
		logger:   logger,
	}
}

// balanceReply 成功後附上最新餘額與帳本位置 (Best Effort)
//
// seq 在 commit 之後才讀取，一定涵蓋這次的寫入，客戶端用它 Confirm 暫定的變化。
func (s *GrpcServer) balanceReply(ctx context.Context, childID string, extra map[string]any) (*structpb.Struct, error) {
	fields := map[string]any{"success": true}
	for k, v := range extra {
		fields[k] = v
	}
	if seq, err := s.view.LatestSeq(ctx, childID); err == nil {
		fields["seq"] = seq
	} else {
		s.logger.Warn("read seq after commit failed", slog.String("child_id", childID), slog.Any("error", err))
	}
	if bal, err := s.view.Balance(ctx, childID); err == nil {
		fields["balance"] = bal
	} else {
		s.logger.Warn("read balance after commit failed", slog.String("child_id", childID), slog.Any("error", err))
	}
	return reply(fields)
}

func (s *GrpcServer) Credit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	amount, err := intField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.core.Credit(ctx, childID, amount, stringField(req, "description"), nil); err != nil {
		return nil, toStatus(err)
	}
	return s.balanceReply(ctx, childID, nil)
}

func (s *GrpcServer) Debit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	amount, err := intField(req, "amount")
	if err != nil {
		return nil, toStatus(err)
	}
	ok, err := s.core.Debit(ctx, childID, amount, stringField(req, "description"), nil)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return declined(domain.ErrInsufficientFunds.Error())
	}
	return s.balanceReply(ctx, childID, nil)
}

func (s *GrpcServer) Purchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	item, err := s.catalog.ShopItem(stringField(req, "item_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	ok, err := s.core.Purchase(ctx, childID, item)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return declined(s.purchaseDeclineReason(ctx, childID, item.ID))
	}
	return s.balanceReply(ctx, childID, map[string]any{"item_id": item.ID})
}

// purchaseDeclineReason 僅用於訊息，讀取時機不在原子範圍內
func (s *GrpcServer) purchaseDeclineReason(ctx context.Context, childID, itemID string) string {
	owned, err := s.view.Ownership(ctx, childID)
	if err != nil {
		return "purchase declined"
	}
	for _, o := range owned {
		if o.ItemID == itemID {
			return domain.ErrAlreadyOwned.Error()
		}
	}
	return domain.ErrInsufficientFunds.Error()
}

func (s *GrpcServer) RedeemReward(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	reward, err := s.catalog.Reward(stringField(req, "reward_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	redemptionID, ok, err := s.core.RedeemReward(ctx, childID, reward)
	if err != nil {
		return nil, toStatus(err)
	}
	if !ok {
		return declined(domain.ErrInsufficientFunds.Error())
	}
	return s.balanceReply(ctx, childID, map[string]any{"redemption_id": redemptionID})
}

func (s *GrpcServer) FulfillRedemption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.core.FulfillRedemption(ctx, stringField(req, "redemption_id")); err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *GrpcServer) SubmitTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	stars, err := intField(req, "stars")
	if err != nil {
		return nil, toStatus(err)
	}
	sub, err := s.workflow.Submit(ctx, stringField(req, "child_id"), stringField(req, "task_template_id"), stars)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"success": true, "submission": sub})
}

func (s *GrpcServer) ApproveSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "submission_id")
	if err := s.workflow.Approve(ctx, id, stringField(req, "description")); err != nil {
		return nil, toStatus(err)
	}
	sub, err := s.workflow.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.balanceReply(ctx, sub.ChildID, map[string]any{"submission": sub})
}

func (s *GrpcServer) RejectSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "submission_id")
	if err := s.workflow.Reject(ctx, id, stringField(req, "reason")); err != nil {
		return nil, toStatus(err)
	}
	sub, err := s.workflow.Get(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"success": true, "submission": sub})
}

func (s *GrpcServer) GetSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sub, err := s.workflow.Get(ctx, stringField(req, "submission_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"submission": sub})
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return nil, toStatus(err)
	}
	bal, err := s.view.Balance(ctx, childID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"balance": bal})
}

func (s *GrpcServer) ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return nil, toStatus(err)
	}
	filter, err := transactionFilter(req)
	if err != nil {
		return nil, toStatus(err)
	}
	trans, err := s.view.Transactions(ctx, childID, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"transactions": trans})
}

func transactionFilter(req *structpb.Struct) (domain.TransactionFilter, error) {
	var f domain.TransactionFilter
	switch typ := domain.TransactionType(stringField(req, "type")); typ {
	case "", domain.TransactionTypeEarn, domain.TransactionTypeRedeem:
		f.Type = typ
	default:
		return f, domain.ErrInvalidInput
	}
	var err error
	if f.Since, err = timeField(req, "since"); err != nil {
		return f, err
	}
	if f.Until, err = timeField(req, "until"); err != nil {
		return f, err
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return f, err
	}
	f.Limit = int(limit)
	return f, nil
}

func (s *GrpcServer) ListOwnership(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return nil, toStatus(err)
	}
	owned, err := s.view.Ownership(ctx, childID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"owned": owned})
}

func (s *GrpcServer) ListRedemptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return nil, toStatus(err)
	}
	rs, err := s.view.Redemptions(ctx, childID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"redemptions": rs})
}

// WeeklyReport week_start 未指定時為最近七天
func (s *GrpcServer) WeeklyReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return nil, toStatus(err)
	}
	start, err := timeField(req, "week_start")
	if err != nil {
		return nil, toStatus(err)
	}
	var earned int64
	if start.IsZero() {
		earned, err = s.view.WeeklyEarned(ctx, childID)
	} else {
		earned, err = s.view.EarnedBetween(ctx, childID, start, start.Add(projection.Week))
	}
	if err != nil {
		return nil, toStatus(err)
	}
	bal, err := s.view.Balance(ctx, childID)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{
		"child_id":       childID,
		"stars_earned":   earned,
		"total_stars":    bal.TotalStars,
		"lifetime_stars": bal.LifetimeStars,
	})
}

func (s *GrpcServer) Audit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.core.Audit(ctx, stringField(req, "child_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{
		"child_id":     report.ChildID,
		"consistent":   report.Consistent(),
		"stored":       report.Stored,
		"replayed":     report.Replayed,
		"transactions": report.Transactions,
	})
}

// WatchChild 先送一次目前的畫面，之後每次 commit 送最新畫面
//
// 消費端太慢時只會收到最新的一張，中間的會被略過。
func (s *GrpcServer) WatchChild(req *structpb.Struct, stream grpc.ServerStream) error {
	childID := stringField(req, "child_id")
	if err := domain.ValidateID("child_id", childID); err != nil {
		return toStatus(err)
	}
	ctx := stream.Context()
	snaps, err := s.hub.Subscribe(ctx, childID)
	if err != nil {
		return toStatus(err)
	}
	started := time.Now()
	for snap := range snaps {
		msg, err := reply(map[string]any{"snapshot": snap})
		if err != nil {
			return err
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}
	s.logger.Debug("watch closed", slog.String("child_id", childID), slog.Duration("elapsed", time.Since(started)))
	return nil
}

var _ LedgerService = (*GrpcServer)(nil)
