package grpc

import (
	"time"

	"google.golang.org/grpc"
)

// Closer 關閉推播來源 (projection.Hub)
type Closer interface {
	Close()
}

// Shutdown 關閉 gRPC Server
//
// 先關閉推播讓 WatchChild 的 stream 結束，再 GracefulStop 等待進行中的請求；
// 超過 timeout 仍未結束則強制 Stop。
//
// 回傳:
//
//	bool: true 代表在 timeout 內優雅結束
func Shutdown(s *grpc.Server, watches Closer, timeout time.Duration) bool {
	if watches != nil {
		watches.Close()
	}
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		s.Stop()
		<-done
		return false
	}
}
