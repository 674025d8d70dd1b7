package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const EnvPrefix = "SPEND_ATLAS"

const (
	BackendDuckDB = "duckdb"
	BackendS3     = "s3"
)

type Config struct {
	Currency    string            `mapstructure:"currency"`
	Budget      BudgetConfig      `mapstructure:"budget"`
	Anomaly     AnomalyConfig     `mapstructure:"anomaly"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Store       StoreConfig       `mapstructure:"store"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

type BudgetConfig struct {
	// Limit is in the base currency.
	Limit string `mapstructure:"limit"`
}

type AnomalyConfig struct {
	Multiplier string `mapstructure:"multiplier"`
	Floor      string `mapstructure:"floor"`
}

type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type FetchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type CredentialsConfig struct {
	Path       string `mapstructure:"path"`
	Passphrase string `mapstructure:"passphrase"`
}

type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	DuckDB  DuckDBConfig  `mapstructure:"duckdb"`
	S3      S3StoreConfig `mapstructure:"s3"`
}

type DuckDBConfig struct {
	Path string `mapstructure:"path"`
}

type S3StoreConfig struct {
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"currency":               "USD",
	"budget.limit":           "1000",
	"anomaly.multiplier":     "3",
	"anomaly.floor":          "1.0",
	"schedule.interval":      "6h",
	"fetch.timeout":          "60s",
	"credentials.path":       "credentials.ini",
	"credentials.passphrase": "",
	"store.backend":          BackendDuckDB,
	"store.duckdb.path":      "spend-atlas.db",
	"store.s3.bucket":        "",
	"store.s3.key":           "spend-atlas/latest.json",
	"store.s3.region":        "us-east-1",
	"notify.webhook_url":     "",
	"server.host":            "127.0.0.1",
	"server.port":            "8080",
	"log.level":              "info",
}

// Load reads path (optional) and applies SPEND_ATLAS_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := c.BudgetLimit(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.AnomalyMultiplier(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.AnomalyFloor(); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, fmt.Errorf("schedule.interval must be positive"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive"))
	}

	switch c.Store.Backend {
	case BackendDuckDB:
		if c.Store.DuckDB.Path == "" {
			errs = append(errs, fmt.Errorf("store.duckdb.path is required"))
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" || c.Store.S3.Key == "" {
			errs = append(errs, fmt.Errorf("store.s3.bucket and store.s3.key are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log.level: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) BudgetLimit() (decimal.Decimal, error) {
	return positive("budget.limit", c.Budget.Limit)
}

func (c *Config) AnomalyMultiplier() (decimal.Decimal, error) {
	return positive("anomaly.multiplier", c.Anomaly.Multiplier)
}

func (c *Config) AnomalyFloor() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Anomaly.Floor))
	if err != nil {
		return decimal.Zero, fmt.Errorf("anomaly.floor: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("anomaly.floor must not be negative")
	}
	return d, nil
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func positive(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
