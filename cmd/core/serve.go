package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/in/grpc"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Graceful Shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpc_adapter.UnaryServerLogging(a.log)),
		grpc.ChainStreamInterceptor(grpc_adapter.StreamServerLogging(a.log)),
	)
	grpc_adapter.RegisterLedgerServiceServer(s, a.server)
	hs := health.NewServer()
	hs.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s) // 方便 grpcurl 測試

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("starting gRPC server", slog.String("addr", lis.Addr().String()))
		return s.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down server")
		hs.Shutdown()
		if !grpc_adapter.Shutdown(s, a.hub, shutdownTimeout) {
			a.log.Warn("graceful stop timed out, connections closed", slog.Duration("timeout", shutdownTimeout))
		}
		return nil
	})

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
		metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.log.Info("starting metrics server", slog.String("addr", cfg.Server.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	a.log.Info("server exited")
	return err
}
