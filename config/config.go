package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Broker   BrokerConfig   `mapstructure:"broker"`
	Copy     CopyConfig     `mapstructure:"copy"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type BrokerConfig struct {
	REST  RESTConfig  `mapstructure:"rest"`
	WS    WSConfig    `mapstructure:"ws"`
	Retry RetryConfig `mapstructure:"retry"`

	// Dev-only token map (account id -> access token). Prod resolves
	// tokens from Parameter Store instead, see credentials.go.
	Tokens map[string]string `mapstructure:"tokens"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WSConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Enabled bool          `mapstructure:"enabled"`
}

// RetryConfig parametrizes the REST client's bounded retry loop.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// CopyConfig holds settings for master ingestion and the fan-out engine.
type CopyConfig struct {
	MasterAccountID string        `mapstructure:"master_account_id"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., BROKER_REST_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	cfg.applyDefaults()

	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Broker.REST.Timeout == 0 {
		c.Broker.REST.Timeout = 10 * time.Second
	}
	if c.Broker.Retry.MaxAttempts == 0 {
		c.Broker.Retry.MaxAttempts = 3
	}
	if c.Broker.Retry.BaseDelay == 0 {
		c.Broker.Retry.BaseDelay = 500 * time.Millisecond
	}
	if c.Broker.Retry.Multiplier == 0 {
		c.Broker.Retry.Multiplier = 2.0
	}
	if c.Copy.PollInterval == 0 {
		c.Copy.PollInterval = 5 * time.Second
	}
}
