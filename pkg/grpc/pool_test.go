package grpc

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestPool_ReusesConnection(t *testing.T) {
	p := NewPool()
	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = p.GetConnection("localhost:50052")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())

	require.NoError(t, p.Close())
	assert.Zero(t, p.Len())

	c, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	require.NoError(t, p.Close())
}

func TestPool_LoggingInterceptor(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, health.NewServer())
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	p := NewPool(WithInterceptor(LoggingInterceptor(log)))
	defer p.Close()

	conn, err := p.GetConnection("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Contains(t, buf.String(), "/grpc.health.v1.Health/Check")
	assert.Contains(t, buf.String(), "code=OK")
}
