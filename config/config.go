package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"prizeledger/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// WalletSpec identifies a wallet slot by kind and currency
type WalletSpec struct {
	Kind     string
	Currency string
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP API configuration
	HTTPAddr string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)
	NATSEnabled bool

	// Wallet configuration
	MaxRetries     int          // Re-reads allowed after a version conflict
	DefaultWallets []WalletSpec // Wallets opened for every new account

	// Exchange configuration
	ExchangeSource WalletSpec
	ExchangeTarget WalletSpec
	ExchangeRate   decimal.Decimal

	// Draw configuration
	DrawSchedule string // cron spec for the draw sweep

	// Logging
	LogLevel  string
	LogFormat string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables, reading a .env file first when present
func load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),
		NATSEnabled: getEnvBool("NATS_ENABLED", true),

		MaxRetries: 2,
		DefaultWallets: []WalletSpec{
			{Kind: "balance", Currency: "USD"},
			{Kind: "points", Currency: "PTS"},
			{Kind: "commission", Currency: "USD"},
		},

		ExchangeSource: WalletSpec{
			Kind:     getEnvWithDefault("EXCHANGE_SOURCE_KIND", "commission"),
			Currency: getEnvWithDefault("EXCHANGE_SOURCE_CURRENCY", "USD"),
		},
		ExchangeTarget: WalletSpec{
			Kind:     getEnvWithDefault("EXCHANGE_TARGET_KIND", "balance"),
			Currency: getEnvWithDefault("EXCHANGE_TARGET_CURRENCY", "USD"),
		},
		ExchangeRate: decimal.NewFromInt(1),

		DrawSchedule: getEnvWithDefault("DRAW_SCHEDULE", "@every 1m"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		OTelEnabled:              getEnvBool("OTEL_ENABLED", false),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "prizeledger"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 30000,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if retries := os.Getenv("WALLET_MAX_RETRIES"); retries != "" {
		parsed, err := strconv.Atoi(retries)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("WALLET_MAX_RETRIES must be a non-negative integer")
		}
		config.MaxRetries = parsed
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if rate := os.Getenv("EXCHANGE_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil || !parsed.IsPositive() {
			return nil, fmt.Errorf("EXCHANGE_RATE must be a positive decimal")
		}
		config.ExchangeRate = parsed
	}

	if wallets := os.Getenv("DEFAULT_WALLETS"); wallets != "" {
		specs, err := ParseWalletSpecs(wallets)
		if err != nil {
			return nil, err
		}
		config.DefaultWallets = specs
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// ParseWalletSpecs parses a "kind:currency,kind:currency" list
func ParseWalletSpecs(raw string) ([]WalletSpec, error) {
	var specs []WalletSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, currency, ok := strings.Cut(part, ":")
		kind = strings.TrimSpace(kind)
		currency = strings.ToUpper(strings.TrimSpace(currency))
		if !ok || kind == "" || currency == "" {
			return nil, fmt.Errorf("invalid wallet spec %q, expected kind:currency", part)
		}
		specs = append(specs, WalletSpec{Kind: kind, Currency: currency})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one wallet spec is required")
	}
	return specs, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment: "test",
		HTTPAddr:    ":0",
		MaxRetries:  2,
		DefaultWallets: []WalletSpec{
			{Kind: "balance", Currency: "USD"},
			{Kind: "commission", Currency: "USD"},
		},
		ExchangeSource:   WalletSpec{Kind: "commission", Currency: "USD"},
		ExchangeTarget:   WalletSpec{Kind: "balance", Currency: "USD"},
		ExchangeRate:     decimal.NewFromInt(1),
		DrawSchedule:     "@every 1m",
		LogLevel:         "debug",
		LogFormat:        "text",
		OTelExporterType: "none",
		OTelServiceName:  "prizeledger-test",
	}
}
