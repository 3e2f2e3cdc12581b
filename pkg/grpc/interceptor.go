package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor 記錄每次 unary 呼叫的方法、耗時與狀態碼
func LoggingInterceptor(log *slog.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "grpc call",
			slog.String("method", method),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("code", status.Code(err).String()))
		return err
	}
}

// StreamLoggingInterceptor 記錄串流的建立
func StreamLoggingInterceptor(log *slog.Logger) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		stream, err := streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			log.Warn("grpc stream open failed", slog.String("method", method), slog.Any("error", err))
			return nil, err
		}
		log.Debug("grpc stream opened", slog.String("method", method))
		return stream, nil
	}
}
