package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Budgets   BudgetConfig
	Pools     PoolConfig
	Compiler  CompilerConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8200"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SandboxConfig holds sandbox frame configuration.
type SandboxConfig struct {
	// BaseOrigin pins relative resource resolution inside compiled artifacts.
	BaseOrigin string `envconfig:"SANDBOX_BASE_ORIGIN" default:"https://sandbox.capsulehq.dev/"`
	// FrameOrigin is the origin sandboxed frames are served from; bridge
	// messages from any other origin are dropped.
	FrameOrigin string        `envconfig:"SANDBOX_FRAME_ORIGIN" default:"https://sandbox.capsulehq.dev"`
	ExecTimeout time.Duration `envconfig:"SANDBOX_EXEC_TIMEOUT" default:"5s"`
	PoolSize    int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
}

// BudgetConfig holds per-surface boot and run budgets.
type BudgetConfig struct {
	PlayerBoot time.Duration `envconfig:"BUDGET_PLAYER_BOOT" default:"15s"`
	PlayerRun  time.Duration `envconfig:"BUDGET_PLAYER_RUN" default:"10m"`
	FeedBoot   time.Duration `envconfig:"BUDGET_FEED_BOOT" default:"6s"`
	FeedRun    time.Duration `envconfig:"BUDGET_FEED_RUN" default:"60s"`
	EmbedBoot  time.Duration `envconfig:"BUDGET_EMBED_BOOT" default:"10s"`
	EmbedRun   time.Duration `envconfig:"BUDGET_EMBED_RUN" default:"5m"`
}

// PoolConfig holds per-surface concurrency slot pool sizes.
type PoolConfig struct {
	PlayerSlots int `envconfig:"SLOTS_PLAYER" default:"2"`
	FeedSlots   int `envconfig:"SLOTS_FEED" default:"3"`
	EmbedSlots  int `envconfig:"SLOTS_EMBED" default:"2"`
}

// CompilerConfig holds HTML compiler configuration.
type CompilerConfig struct {
	// MaxBytes is the baseline-tier source size ceiling. The quota
	// collaborator may pass a larger per-plan ceiling per request.
	MaxBytes int `envconfig:"COMPILE_MAX_BYTES" default:"2097152"`
}

// StorageConfig holds object store configuration for bundle verification.
type StorageConfig struct {
	Endpoint       string `envconfig:"STORAGE_ENDPOINT" default:"http://localhost:9000/capsule-bundles"`
	VerifyOnUpload bool   `envconfig:"STORAGE_VERIFY" default:"true"`
	MaxBundleBytes int64  `envconfig:"STORAGE_MAX_BUNDLE_BYTES" default:"26214400"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8200",
			Host: "0.0.0.0",
		},
		Sandbox: SandboxConfig{
			BaseOrigin:  "https://sandbox.capsulehq.dev/",
			FrameOrigin: "https://sandbox.capsulehq.dev",
			ExecTimeout: 5 * time.Second,
			PoolSize:    4,
		},
		Budgets: BudgetConfig{
			PlayerBoot: 15 * time.Second,
			PlayerRun:  10 * time.Minute,
			FeedBoot:   6 * time.Second,
			FeedRun:    60 * time.Second,
			EmbedBoot:  10 * time.Second,
			EmbedRun:   5 * time.Minute,
		},
		Pools: PoolConfig{
			PlayerSlots: 2,
			FeedSlots:   3,
			EmbedSlots:  2,
		},
		Compiler: CompilerConfig{
			MaxBytes: 2 * 1024 * 1024,
		},
		Storage: StorageConfig{
			Endpoint:       "http://localhost:9000/capsule-bundles",
			VerifyOnUpload: true,
			MaxBundleBytes: 25 * 1024 * 1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
