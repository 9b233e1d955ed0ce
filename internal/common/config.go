package common

import (
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/joseph-ayodele/jobsite-invoices/constants"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "INVOICES"

// Config holds all application configuration
type Config struct {
	Store   StoreConfig
	Invoice InvoiceConfig
	Log     LogConfig
}

// StoreConfig holds key-value storage configuration
type StoreConfig struct {
	Driver           string        `default:"sqlite"`
	DSN              string        `default:"invoices.db"`
	Dir              string        `default:"./data"`
	Table            string        `default:"kv_store"`
	MaxConns         int32         `split_words:"true" default:"4"`
	MinConns         int32         `split_words:"true" default:"1"`
	MaxConnLifetime  time.Duration `split_words:"true" default:"30m"`
	MaxConnIdleTime  time.Duration `split_words:"true" default:"5m"`
	DialTimeout      time.Duration `split_words:"true" default:"3s"`
	StatementTimeout time.Duration `split_words:"true" default:"0s"`
	InvoicesKey      string        `split_words:"true" default:"@jobsite_invoices"`
	SettingsKey      string        `split_words:"true" default:"@jobsite_settings"`
}

// InvoiceConfig holds invoice defaults
type InvoiceConfig struct {
	DefaultTaxRate float64 `split_words:"true" default:"8.0"`
	DateLayout     string  `split_words:"true" default:"1/2/2006"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"text"`
}

// Store drivers understood by storage.Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// LoadConfig loads configuration from INVOICES_* environment variables
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "failed to read environment", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.InvoicesKey == "" {
		cfg.Store.InvoicesKey = constants.InvoicesKey
	}
	if cfg.Store.SettingsKey == "" {
		cfg.Store.SettingsKey = constants.SettingsKey
	}
	return &cfg, nil
}

// IsSQL reports whether the driver is backed by database/sql.
func (c StoreConfig) IsSQL() bool {
	switch c.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	}
	return false
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return NewAppError("CONFIG_ERROR", "INVOICES_STORE_DRIVER must be one of memory, file, sqlite, postgres, mysql", ErrInvalidInput)
	}
	if c.Store.IsSQL() && strings.TrimSpace(c.Store.DSN) == "" {
		return NewAppError("CONFIG_ERROR", "INVOICES_STORE_DSN is required", ErrInvalidInput)
	}
	if c.Store.Driver == DriverFile && strings.TrimSpace(c.Store.Dir) == "" {
		return NewAppError("CONFIG_ERROR", "INVOICES_STORE_DIR is required", ErrInvalidInput)
	}
	if err := ValidateTaxRate(c.Invoice.DefaultTaxRate); err != nil {
		return NewAppError("CONFIG_ERROR", "INVOICES_INVOICE_DEFAULT_TAX_RATE is out of range", err)
	}
	return nil
}

// ValidateTaxRate checks a percentage tax rate is a number in [0,100].
func ValidateTaxRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 100 {
		return ValidationError{Field: "taxRate", Value: rate, Message: "must be between 0 and 100"}
	}
	return nil
}
