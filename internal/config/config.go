package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-star-ledger/pkg/database"
)

// 儲存後端
const (
	BackendMemory = "memory"
	BackendMySQL  = database.DriverMySQL
	BackendSQLite = database.DriverSQLite
)

// 記憶體引擎
const (
	EngineMutex     = "mutex"
	EngineSequencer = "sequencer"
)

// Config 服務設定
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Store    StoreConfig     `yaml:"store"`
	Memory   MemoryConfig    `yaml:"memory"`
	Database database.Config `yaml:"database"`
	Ledger   LedgerConfig    `yaml:"ledger"`
	Catalog  CatalogConfig   `yaml:"catalog"`
}

type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr" validate:"required"`
	MetricsAddr string `yaml:"metrics_addr"` // 空字串代表不開 /metrics
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory mysql sqlite"`
	// 持久化後端無法連線時改用記憶體
	FallbackToMemory bool `yaml:"fallback_to_memory"`
}

type MemoryConfig struct {
	Engine    string `yaml:"engine" validate:"oneof=mutex sequencer"`
	WALPath   string `yaml:"wal_path"` // 空字串代表不持久化
	QueueSize int    `yaml:"queue_size" validate:"gte=0"`
}

type LedgerConfig struct {
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0,lte=100"`
	RetryBackoff time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	RecentLimit  int           `yaml:"recent_limit" validate:"gt=0,lte=500"`
}

type CatalogConfig struct {
	Items   []domain.ShopItem `yaml:"items" validate:"dive"`
	Rewards []domain.Reward   `yaml:"rewards" validate:"dive"`
}

// Default 預設設定：記憶體後端，離線/展示用
func Default() Config {
	return Config{
		Server: ServerConfig{GRPCAddr: ":50051", MetricsAddr: ":9090"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Store:  StoreConfig{Backend: BackendMemory, FallbackToMemory: true},
		Memory: MemoryConfig{Engine: EngineMutex},
		Ledger: LedgerConfig{MaxRetries: 5, RetryBackoff: 5 * time.Millisecond, RecentLimit: 20},
	}
}

// Load 讀取 YAML 設定檔，補上預設值並驗證
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML，未設定的欄位沿用 Default()
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults 補全 YAML 明確寫成零值的欄位
func (c *Config) applyDefaults() {
	if c.Memory.Engine == "" {
		c.Memory.Engine = EngineMutex
	}
	if c.Ledger.RecentLimit == 0 {
		c.Ledger.RecentLimit = 20
	}
	if c.Store.Backend != BackendMemory {
		c.Database.Driver = c.Store.Backend
	}
	c.Database = c.Database.WithDefaults()
}

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate 驗證設定
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
