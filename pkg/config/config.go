package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application configuration values.
type Config struct {
	StorageBackend string           `mapstructure:"storage_backend"`
	HTTP           HTTPConfig       `mapstructure:"http"`
	Logging        LoggingConfig    `mapstructure:"log"`
	Ledger         LedgerConfig     `mapstructure:"ledger"`
	Platform       PlatformConfig   `mapstructure:"platform"`
	Settlement     SettlementConfig `mapstructure:"settlement"`
	DynamoDB       DynamoDBConfig   `mapstructure:"dynamodb"`
	Queue          QueueConfig      `mapstructure:"sqs"`
	RateLimit      RateLimitConfig  `mapstructure:"rate_limit"`
	WebSocket      WebSocketConfig  `mapstructure:"websocket"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"` // text|json
	IncludeCaller bool   `mapstructure:"include_caller"`
}

// LedgerConfig points the ledger client at a Horizon-compatible read API.
type LedgerConfig struct {
	Network string        `mapstructure:"network"` // mainnet|testnet
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PlatformConfig holds the payment platform API endpoint and server key.
type PlatformConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SettlementConfig carries the business parameters of settlement.
type SettlementConfig struct {
	FeeRate          float64       `mapstructure:"fee_rate"`
	AppWallet        string        `mapstructure:"app_wallet"`
	AmountTolerance  string        `mapstructure:"amount_tolerance"`
	RequirePayerAuth bool          `mapstructure:"require_payer_auth"`
	StaleAfter       time.Duration `mapstructure:"stale_after"`
	DefaultPlanDays  int           `mapstructure:"default_plan_days"`
	Plans            []PlanConfig  `mapstructure:"plans"`
}

// PlanConfig describes a subscription plan. Price is a decimal string.
type PlanConfig struct {
	Type         string `mapstructure:"type"`
	Price        string `mapstructure:"price"`
	DurationDays int    `mapstructure:"duration_days"`
}

// DynamoDBConfig lists the table names used by the DynamoDB store.
type DynamoDBConfig struct {
	SettlementsTable         string `mapstructure:"settlements_table"`
	OrdersTable              string `mapstructure:"orders_table"`
	SubscriptionsTable       string `mapstructure:"subscriptions_table"`
	PaymentTransactionsTable string `mapstructure:"payment_transactions_table"`
	EarningsTable            string `mapstructure:"earnings_table"`
	BalancesTable            string `mapstructure:"balances_table"`
	StoresTable              string `mapstructure:"stores_table"`
	ConnectionsTable         string `mapstructure:"connections_table"`
}

// QueueConfig points at the SQS queue used for settlement retries.
type QueueConfig struct {
	URL string `mapstructure:"queue_url"`
}

// RateLimitConfig controls per-client request rate limiting.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`

	// TrustedProxies are CIDRs or addresses of load balancers allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// WebSocketConfig configures settlement notifications.
type WebSocketConfig struct {
	APIEndpoint string `mapstructure:"api_endpoint"`
}

const (
	mainnetHorizon = "https://api.mainnet.minepi.com"
	testnetHorizon = "https://api.testnet.minepi.com"
)

var defaults = map[string]any{
	"storage_backend": "dynamodb",

	"http.host":             "0.0.0.0",
	"http.port":             8080,
	"http.read_timeout":     "10s",
	"http.write_timeout":    "30s",
	"http.idle_timeout":     "60s",
	"http.shutdown_timeout": "10s",

	"log.level":          "info",
	"log.format":         "json",
	"log.include_caller": false,

	"ledger.network":  "mainnet",
	"ledger.base_url": "",
	"ledger.timeout":  "10s",

	"platform.base_url": "https://api.minepi.com",
	"platform.api_key":  "",
	"platform.timeout":  "15s",

	"settlement.fee_rate":           0.02,
	"settlement.app_wallet":         "",
	"settlement.amount_tolerance":   "0.0001",
	"settlement.require_payer_auth": false,
	"settlement.stale_after":        "20m",
	"settlement.default_plan_days":  30,

	"dynamodb.settlements_table":          "",
	"dynamodb.orders_table":               "",
	"dynamodb.subscriptions_table":        "",
	"dynamodb.payment_transactions_table": "",
	"dynamodb.earnings_table":             "",
	"dynamodb.balances_table":             "",
	"dynamodb.stores_table":               "",
	"dynamodb.connections_table":          "",

	"sqs.queue_url": "",

	"rate_limit.enabled": true,
	"rate_limit.rps":     5.0,
	"rate_limit.burst":   10,

	"rate_limit.trusted_proxies": []string{},

	"websocket.api_endpoint": "",
}

// Load reads configuration from a .env file, the environment and an optional
// YAML file named by CONFIG_FILE, applying defaults. Environment keys are the
// upper-cased dotted keys with dots replaced by underscores (LEDGER_BASE_URL).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return Config{}, fmt.Errorf("failed to bind CONFIG_FILE: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return Config{}, fmt.Errorf("port %d is out of range", cfg.HTTP.Port)
	}
	if cfg.Settlement.FeeRate < 0 || cfg.Settlement.FeeRate >= 1 {
		return Config{}, fmt.Errorf("fee rate %v must be in [0, 1)", cfg.Settlement.FeeRate)
	}

	return cfg, nil
}

// LedgerBaseURL returns the explicit base URL or the Horizon endpoint of the configured network.
func (c LedgerConfig) LedgerBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if strings.EqualFold(c.Network, "testnet") {
		return testnetHorizon
	}
	return mainnetHorizon
}

// ErrMissingTables is returned when the DynamoDB backend is selected without table names.
var ErrMissingTables = errors.New("one or more DynamoDB table names are not set")

// Validate checks the tables needed by the DynamoDB store.
func (c DynamoDBConfig) Validate() error {
	for _, name := range []string{
		c.SettlementsTable, c.OrdersTable, c.SubscriptionsTable, c.PaymentTransactionsTable,
		c.EarningsTable, c.BalancesTable, c.StoresTable,
	} {
		if name == "" {
			return ErrMissingTables
		}
	}
	return nil
}
