package grpc

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryServerLogging 記錄每個請求的方法、耗時與狀態碼，並把 panic 轉成 Internal
func UnaryServerLogging(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc handler panic", slog.String("method", info.FullMethod),
					slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			level := slog.LevelInfo
			switch code {
			case codes.OK, codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
			default:
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "grpc request",
				slog.String("method", info.FullMethod),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("code", code.String()))
		}()
		return handler(ctx, req)
	}
}

// StreamServerLogging 記錄串流的開始與結束
func StreamServerLogging(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		log.Info("grpc stream",
			slog.String("method", info.FullMethod),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("code", status.Code(err).String()))
		return err
	}
}
