package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	HTTP struct {
		Address         string `yaml:"address"`
		ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
		Mode            string `yaml:"mode" validate:"omitempty,oneof=debug release test"`
	} `yaml:"http"`

	Database DatabaseConfig `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Sweep SweepConfig `yaml:"sweep"`

	Notify NotifyConfig `yaml:"notify"`

	// Relay serves the sibling notification endpoint that the webhook driver calls.
	Relay struct {
		Enabled    bool         `yaml:"enabled"`
		ServiceKey string       `yaml:"service_key" validate:"required_if=Enabled true"`
		Notify     NotifyConfig `yaml:"notify"`
	} `yaml:"relay"`

	Proposals struct {
		ExpiryHours     int    `yaml:"expiry_hours"`
		DefaultCurrency string `yaml:"default_currency" validate:"omitempty,len=3"`
	} `yaml:"proposals"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`

	Logging struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	} `yaml:"logging"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres supabase"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn" validate:"required_if=Driver postgres"`

	MaxConns int `yaml:"max_conns"`

	SupabaseURL string `yaml:"supabase_url" validate:"required_if=Driver supabase"`
	SupabaseKey string `yaml:"supabase_key" validate:"required_if=Driver supabase"`
}

type SweepConfig struct {
	// IntervalMinutes enables the in-process trigger; 0 leaves scheduling to an external caller.
	IntervalMinutes int      `yaml:"interval_minutes" validate:"gte=0"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	LockTTLSeconds  int      `yaml:"lock_ttl_seconds"`
	UseLock         bool     `yaml:"use_lock"`
	VenueIDs        []string `yaml:"venue_ids"`
	// VenuesFile is an optional yaml file with a venue_ids list, hot-reloaded.
	VenuesFile   string `yaml:"venues_file"`
	ExpiryHours  int    `yaml:"expiry_hours"`
	CurrencyCode string `yaml:"currency" validate:"omitempty,len=3"`
}

type NotifyConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=webhook telegram kafka amqp log"`

	Webhook struct {
		URL        string `yaml:"url"`
		ServiceKey string `yaml:"service_key"`
		TimeoutSec int    `yaml:"timeout_seconds"`
	} `yaml:"webhook"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	AMQP struct {
		URL        string `yaml:"url"`
		Exchange   string `yaml:"exchange"`
		RoutingKey string `yaml:"routing_key"`
	} `yaml:"amqp"`

	// RatePerSecond caps outbound calls; 0 disables the limiter.
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the yaml config at path, expanding ${ENV_VAR} placeholders.
// A .env file next to the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes raw yaml, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/venuebook.db"
	}
	if c.Notify.Driver == "" {
		c.Notify.Driver = "log"
	}
	if c.Relay.Notify.Driver == "" {
		c.Relay.Notify.Driver = "log"
	}
	if c.Sweep.ExpiryHours <= 0 {
		c.Sweep.ExpiryHours = 2
	}
	if c.Sweep.CurrencyCode == "" {
		c.Sweep.CurrencyCode = "EUR"
	}
	if c.Proposals.ExpiryHours <= 0 {
		c.Proposals.ExpiryHours = c.Sweep.ExpiryHours
	}
	if c.Proposals.DefaultCurrency == "" {
		c.Proposals.DefaultCurrency = c.Sweep.CurrencyCode
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

func (c *Config) SweepInterval() time.Duration {
	if c.Sweep.IntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}

func (c *Config) SweepTimeout() time.Duration {
	if c.Sweep.TimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.Sweep.TimeoutSeconds) * time.Second
}

func (c *Config) SweepLockTTL() time.Duration {
	if c.Sweep.LockTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Sweep.LockTTLSeconds) * time.Second
}

func (c *Config) ProposalExpiry() time.Duration {
	return time.Duration(c.Proposals.ExpiryHours) * time.Hour
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (n *NotifyConfig) WebhookTimeout() time.Duration {
	if n.Webhook.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.Webhook.TimeoutSec) * time.Second
}
