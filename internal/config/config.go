package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harbor-legal/docketwatch/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Source SourceConfig `yaml:"source" mapstructure:"source"`
	OCR    OCRConfig    `yaml:"ocr" mapstructure:"ocr"`
	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
	Tables      TableConfig      `yaml:"tables" mapstructure:"tables"`
}

// TableConfig overrides the schema-qualified table names.
type TableConfig struct {
	Clients string `yaml:"clients" mapstructure:"clients"`
	Cases   string `yaml:"cases" mapstructure:"cases"`
	Status  string `yaml:"status" mapstructure:"status"`
}

// Tables converts the override config into store table names.
func (t TableConfig) Tables() store.Tables {
	tables := store.DefaultTables()
	if t.Clients != "" {
		tables.Clients = t.Clients
	}
	if t.Cases != "" {
		tables.Cases = t.Cases
	}
	if t.Status != "" {
		tables.Status = t.Status
	}
	return tables
}

// SourceConfig configures the external violation dataset API.
type SourceConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	AppToken   string  `yaml:"app_token" mapstructure:"app_token"`
	PageLimit  int     `yaml:"page_limit" mapstructure:"page_limit"`
	MaxRetries int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// OCRConfig configures the enrichment worker.
type OCRConfig struct {
	WorkerURL   string `yaml:"worker_url" mapstructure:"worker_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SyncConfig holds the sync engine's numeric knobs.
type SyncConfig struct {
	DailyQuota  int `yaml:"daily_quota" mapstructure:"daily_quota"`
	ThrottleMS  int `yaml:"throttle_ms" mapstructure:"throttle_ms"`
	FailureCap  int `yaml:"failure_cap" mapstructure:"failure_cap"`
	GracePeriod int `yaml:"grace_period" mapstructure:"grace_period"`
}

// ThrottleDelay returns the inter-call enrichment delay as a duration.
func (s SyncConfig) ThrottleDelay() time.Duration {
	return time.Duration(s.ThrottleMS) * time.Millisecond
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the fields required for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	requireSyncKnobs := func() {
		if c.Source.BaseURL == "" {
			problems = append(problems, "source.base_url is required")
		}
		if c.OCR.WorkerURL == "" {
			problems = append(problems, "ocr.worker_url is required")
		}
		if c.Sync.DailyQuota < 1 {
			problems = append(problems, "sync.daily_quota must be >= 1")
		}
		if c.Sync.ThrottleMS < 0 {
			problems = append(problems, "sync.throttle_ms must be >= 0")
		}
		if c.Sync.FailureCap < 1 {
			problems = append(problems, "sync.failure_cap must be >= 1")
		}
		if c.Sync.GracePeriod < 1 {
			problems = append(problems, "sync.grace_period must be >= 1")
		}
	}

	switch mode {
	case "sync":
		requireDB()
		requireSyncKnobs()
	case "migrate", "status":
		requireDB()
	case "serve":
		requireDB()
		requireSyncKnobs()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s mode: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCKETWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("source.page_limit", 1000)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.rate_per_sec", 5)
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("sync.daily_quota", 500)
	v.SetDefault("sync.throttle_ms", 2000)
	v.SetDefault("sync.failure_cap", 3)
	v.SetDefault("sync.grace_period", 3)
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
