package grpc

import (
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 管理通往多個目標的 gRPC 客戶端連線，每個目標地址只維護一個連線實例
type Pool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn

	unary  []grpc.UnaryClientInterceptor
	stream []grpc.StreamClientInterceptor
}

// PoolOption 定義了 Pool 的配置選項函數
type PoolOption func(*Pool)

// WithInterceptor 加入 UnaryClientInterceptor (Logging, Metrics, Auth Token 注入)
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.unary = append(p.unary, interceptor)
	}
}

// WithStreamInterceptor 加入 StreamClientInterceptor
func WithStreamInterceptor(interceptor grpc.StreamClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.stream = append(p.stream, interceptor)
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{conns: make(map[string]*grpc.ClientConn)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得現有連線，或為指定目標建立新連線
//
// 參數:
//
//	target: 目標伺服器地址 (e.g., "localhost:50051")
//	opts: 額外的 gRPC 連線選項
//
// 回傳值:
//
//	*grpc.ClientConn: gRPC 客戶端連線物件
//	error: 若建立連線失敗則回傳錯誤
func (p *Pool) GetConnection(target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.conns[target]; ok {
		// 已關閉的連線需要重建
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
		delete(p.conns, target)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second, // 若無活動，每 10 秒發送一次 Ping
			Timeout:             time.Second,
			PermitWithoutStream: true,
		}),
	}
	if len(p.unary) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainUnaryInterceptor(p.unary...))
	}
	if len(p.stream) > 0 {
		dialOpts = append(dialOpts, grpc.WithChainStreamInterceptor(p.stream...))
	}
	dialOpts = append(dialOpts, opts...)

	// grpc.NewClient 是 Lazy connection，第一次呼叫時才真正連線
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for target %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Len 目前維護的連線數
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close 關閉連線池中的所有連線，回傳第一個錯誤
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, target)
	}
	return firstErr
}
