package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	grpc_adapter "github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-star-ledger/pkg/grpc"
	"github.com/JoeShih716/go-star-ledger/pkg/logging"
)

// 對同一位小孩、同一件物品發出大量並發購買，驗證只有一筆成功
var (
	target      string
	childID     string
	itemID      string
	seed        int64
	totalCount  int
	concurrency int
	timeout     time.Duration
	logLevel    string
)

func main() {
	cmd := &cobra.Command{
		Use:          "test_rpc_client",
		Short:        "Fire concurrent purchases of one item and check that exactly one succeeds",
		SilenceUsage: true,
		RunE:         run,
	}
	f := cmd.Flags()
	f.StringVar(&target, "target", "localhost:50051", "ledger gRPC address")
	f.StringVar(&childID, "child", "load-child", "child id")
	f.StringVar(&itemID, "item", "hat-red", "shop item id")
	f.Int64Var(&seed, "seed", 1000, "stars to credit before the run")
	f.IntVar(&totalCount, "count", 1000, "number of purchase requests")
	f.IntVar(&concurrency, "concurrency", 100, "concurrent requests")
	f.DurationVar(&timeout, "timeout", 60*time.Second, "overall timeout")
	f.StringVar(&logLevel, "log-level", "info", "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := logging.New(logLevel, "text", os.Stderr)

	pool := grpc.NewPool(
		grpc.WithInterceptor(grpc.LoggingInterceptor(log)),
		grpc.WithStreamInterceptor(grpc.StreamLoggingInterceptor(log)),
	)
	defer pool.Close()
	conn, err := pool.GetConnection(target)
	if err != nil {
		return err
	}
	c := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if seed > 0 {
		if err := c.Credit(ctx, childID, seed, "load test seed"); err != nil {
			return fmt.Errorf("seed credit: %w", err)
		}
	}
	before, err := c.TotalStars(ctx, childID)
	if err != nil {
		return err
	}

	var succeeded, declined, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	startTime := time.Now()
	for i := 0; i < totalCount; i++ {
		g.Go(func() error {
			ok, _, err := c.Purchase(gctx, childID, itemID)
			switch {
			case err != nil:
				failed.Add(1)
			case ok:
				succeeded.Add(1)
			default:
				declined.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(startTime)

	after, err := c.TotalStars(ctx, childID)
	if err != nil {
		return err
	}

	fmt.Printf("Completed %d requests in %v\n", totalCount, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(totalCount)/elapsed.Seconds())
	fmt.Printf("succeeded=%d declined=%d failed=%d balance %d -> %d\n",
		succeeded.Load(), declined.Load(), failed.Load(), before, after)

	if succeeded.Load() > 1 {
		log.Error("item purchased more than once", slog.Int64("succeeded", succeeded.Load()))
		return fmt.Errorf("expected at most one successful purchase, got %d", succeeded.Load())
	}
	return nil
}
