package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	grpc_adapter "github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/catalog"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/backend"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/projection"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-star-ledger/internal/config"
	"github.com/JoeShih716/go-star-ledger/pkg/logging"
)

// app 組裝好的服務元件
type app struct {
	cfg      config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	store    usecase.Store
	core     *usecase.CoreUseCase
	workflow *usecase.SubmissionWorkflow
	view     *projection.View
	hub      *projection.Hub
	server   *grpc_adapter.GrpcServer
}

// loadConfig 設定檔不存在且沒有明確指定 --config 時使用預設值
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.Config{}, err
}

// newApp 依設定建立所有元件
//
// 1. 儲存後端 (memory / mysql / sqlite，必要時 fallback)
// 2. 商店目錄
// 3. Metrics registry
// 4. UseCase、投影、推播 Hub
// 5. gRPC Adapter (Driving Adapter)
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(log)

	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.NewStatic(cfg.Catalog.Items, cfg.Catalog.Rewards)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	view := projection.NewView(store, cfg.Ledger.RecentLimit)
	hub := projection.NewHub(view, log)
	core := usecase.NewCoreUseCase(store,
		usecase.WithNotifier(hub),
		usecase.WithMetrics(usecase.NewMetrics(reg)),
		usecase.WithLogger(log),
		usecase.WithRetry(cfg.Ledger.MaxRetries, cfg.Ledger.RetryBackoff),
	)
	workflow := usecase.NewSubmissionWorkflow(core)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		store:    store,
		core:     core,
		workflow: workflow,
		view:     view,
		hub:      hub,
		server:   grpc_adapter.NewGrpcServer(core, workflow, view, hub, cat, log),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("close store failed", slog.Any("error", err))
	}
}
