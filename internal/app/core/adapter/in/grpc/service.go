package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務名稱
//
// 訊息一律使用 google.protobuf.Struct，服務描述手寫，不需要 protoc 產生程式碼。
const ServiceName = "stars.v1.StarLedger"

// 方法名稱
const (
	MethodCredit            = "Credit"
	MethodDebit             = "Debit"
	MethodPurchase          = "Purchase"
	MethodRedeemReward      = "RedeemReward"
	MethodFulfillRedemption = "FulfillRedemption"
	MethodSubmitTask        = "SubmitTask"
	MethodApproveSubmission = "ApproveSubmission"
	MethodRejectSubmission  = "RejectSubmission"
	MethodGetSubmission     = "GetSubmission"
	MethodGetBalance        = "GetBalance"
	MethodListTransactions  = "ListTransactions"
	MethodListOwnership     = "ListOwnership"
	MethodListRedemptions   = "ListRedemptions"
	MethodWeeklyReport      = "WeeklyReport"
	MethodAudit             = "Audit"
	MethodWatchChild        = "WatchChild"
)

// FullMethod 回傳 "/stars.v1.StarLedger/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerService 服務介面
type LedgerService interface {
	Credit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Debit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Purchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RedeemReward(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	FulfillRedemption(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SubmitTask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ApproveSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RejectSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListOwnership(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRedemptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WeeklyReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Audit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WatchChild(req *structpb.Struct, stream grpc.ServerStream) error
}

type unaryMethod func(srv LedgerService, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(LedgerService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return m(srv.(LedgerService), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchChildHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(LedgerService).WatchChild(in, stream)
}

// ServiceDesc 手寫的服務描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerService)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCredit, LedgerService.Credit),
		unary(MethodDebit, LedgerService.Debit),
		unary(MethodPurchase, LedgerService.Purchase),
		unary(MethodRedeemReward, LedgerService.RedeemReward),
		unary(MethodFulfillRedemption, LedgerService.FulfillRedemption),
		unary(MethodSubmitTask, LedgerService.SubmitTask),
		unary(MethodApproveSubmission, LedgerService.ApproveSubmission),
		unary(MethodRejectSubmission, LedgerService.RejectSubmission),
		unary(MethodGetSubmission, LedgerService.GetSubmission),
		unary(MethodGetBalance, LedgerService.GetBalance),
		unary(MethodListTransactions, LedgerService.ListTransactions),
		unary(MethodListOwnership, LedgerService.ListOwnership),
		unary(MethodListRedemptions, LedgerService.ListRedemptions),
		unary(MethodWeeklyReport, LedgerService.WeeklyReport),
		unary(MethodAudit, LedgerService.Audit),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchChild,
			Handler:       watchChildHandler,
			ServerStreams: true,
		},
	},
	Metadata: "stars/v1/ledger",
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerService) {
	s.RegisterService(&ServiceDesc, srv)
}
