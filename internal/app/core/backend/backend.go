package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/adapter/out/sqlstore"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-star-ledger/internal/config"
	"github.com/JoeShih716/go-star-ledger/pkg/database"
	"github.com/JoeShih716/go-star-ledger/pkg/wal"
)

// Open 依設定選擇帳本後端
//
// 持久化後端無法連線時，若 store.fallback_to_memory 為 true 改用記憶體後端，
// 否則回傳包裝 domain.ErrBackendUnavailable 的錯誤。
// 呼叫端的程式碼不需要知道實際使用哪一種後端。
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (usecase.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMySQL, config.BackendSQLite:
		store, err := openSQL(ctx, cfg.Database, log)
		if err == nil {
			log.Info("ledger backend ready", slog.String("backend", cfg.Store.Backend))
			return store, nil
		}
		if !cfg.Store.FallbackToMemory {
			return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		}
		log.Warn("persistent backend unavailable, falling back to memory",
			slog.String("backend", cfg.Store.Backend), slog.Any("error", err))
		return OpenMemory(ctx, cfg.Memory, log)
	case config.BackendMemory, "":
		return OpenMemory(ctx, cfg.Memory, log)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, cfg.Store.Backend)
	}
}

func openSQL(ctx context.Context, cfg database.Config, log *slog.Logger) (usecase.Store, error) {
	client, err := database.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	store := sqlstore.NewStore(client)
	if err := store.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// OpenMemory 建立記憶體後端，有設定 wal_path 時先從 WAL 恢復
func OpenMemory(ctx context.Context, cfg config.MemoryConfig, log *slog.Logger) (usecase.Store, error) {
	var w *wal.WAL
	if cfg.WALPath != "" {
		var err error
		if w, err = wal.NewWAL(cfg.WALPath); err != nil {
			return nil, fmt.Errorf("open wal: %w", err)
		}
	}
	switch cfg.Engine {
	case config.EngineSequencer:
		store, err := memory.NewSequencedStore(w, cfg.QueueSize)
		if err != nil {
			closeWAL(w)
			return nil, err
		}
		store.Start(context.WithoutCancel(ctx))
		log.Info("ledger backend ready", slog.String("backend", "memory"), slog.String("engine", cfg.Engine),
			slog.Bool("wal", w != nil))
		return store, nil
	default:
		store, err := memory.NewMutexStore(w)
		if err != nil {
			closeWAL(w)
			return nil, err
		}
		log.Info("ledger backend ready", slog.String("backend", "memory"), slog.String("engine", config.EngineMutex),
			slog.Bool("wal", w != nil))
		return store, nil
	}
}

func closeWAL(w *wal.WAL) {
	if w != nil {
		_ = w.Close()
	}
}
