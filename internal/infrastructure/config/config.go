package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,       default=info"`
	LogPretty      bool   `env:"LOG_PRETTY,      default=true"`
	PageLimit      int    `env:"PAGE_LIMIT,      default=20"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	API     APIConfig
	Storage StorageConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type APIConfig struct {
	BaseURL string        `env:"API_BASE_URL,    default=https://lead-management-system-backend-whbe.onrender.com/api/v1/"`
	Timeout time.Duration `env:"HTTP_TIMEOUT,    default=15s"`
	// RateLimit is requests per second; 0 disables pacing.
	RateLimit float64 `env:"HTTP_RATE_LIMIT, default=0"`
	RateBurst int     `env:"HTTP_RATE_BURST, default=1"`
}

type StorageConfig struct {
	Backend   string `env:"STORAGE_BACKEND, default=sqlite"`
	StatePath string `env:"STATE_PATH"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=leadctl"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads an optional dotenv file, then the environment. Variables already
// set in the environment win over the file.
func Load(ctx context.Context, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom processes configuration from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendRedis, BackendMongo, BackendMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
	if cfg.PageLimit < 1 || cfg.PageLimit > 100 {
		return nil, fmt.Errorf("config: PAGE_LIMIT must be between 1 and 100, got %d", cfg.PageLimit)
	}
	if cfg.API.Timeout <= 0 {
		return nil, fmt.Errorf("config: HTTP_TIMEOUT must be positive")
	}
	if !strings.HasSuffix(cfg.API.BaseURL, "/") {
		cfg.API.BaseURL += "/"
	}
	if cfg.Storage.StatePath == "" {
		cfg.Storage.StatePath = defaultStatePath()
	}
	return &cfg, nil
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "leadctl", "state.db")
}
