package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":9091"`

	RedisAddr   string `env:"REDIS_ADDR,required"`
	PostgresURL string `env:"POSTGRES_URL,required"`

	UpstreamBaseURL   string        `env:"UPSTREAM_BASE_URL,required"`
	CRMUsername       string        `env:"CRM_USERNAME" envDefault:"crm_user"`
	CRMPassword       string        `env:"CRM_PASSWORD" envDefault:"crm_password"`
	InventoryUsername string        `env:"INVENTORY_USERNAME" envDefault:"inventory_user"`
	InventoryPassword string        `env:"INVENTORY_PASSWORD" envDefault:"inventory_password"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"55m"`
	UpstreamRateLimit float64       `env:"UPSTREAM_RATE_LIMIT" envDefault:"10"` // requests per second

	FetchPageSize  int           `env:"FETCH_PAGE_SIZE" envDefault:"100"`
	FetchWalkPages bool          `env:"FETCH_WALK_PAGES" envDefault:"false"`
	FetchMaxPages  int           `env:"FETCH_MAX_PAGES" envDefault:"50"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FetchStrict    bool          `env:"FETCH_STRICT" envDefault:"false"`

	SchedulerEnabled  bool          `env:"SCHEDULER_ENABLED" envDefault:"false"`
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"15m"`

	ConsumerBatchSize int           `env:"CONSUMER_BATCH_SIZE" envDefault:"100"`
	ConsumerInterval  time.Duration `env:"CONSUMER_INTERVAL" envDefault:"1s"`
	DLQStream         string        `env:"DLQ_STREAM" envDefault:"integration:dlq"`
	StagingTTL        time.Duration `env:"STAGING_TTL" envDefault:"1h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
