package common

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "invoices.db", cfg.Store.DSN)
	assert.Equal(t, "@jobsite_invoices", cfg.Store.InvoicesKey)
	assert.Equal(t, "@jobsite_settings", cfg.Store.SettingsKey)
	assert.Equal(t, 3*time.Second, cfg.Store.DialTimeout)
	assert.Equal(t, 8.0, cfg.Invoice.DefaultTaxRate)
	assert.Equal(t, "1/2/2006", cfg.Invoice.DateLayout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("INVOICES_STORE_DRIVER", " Postgres ")
	t.Setenv("INVOICES_STORE_DSN", "postgres://u:p@localhost/invoices")
	t.Setenv("INVOICES_STORE_MAX_CONNS", "12")
	t.Setenv("INVOICES_STORE_STATEMENT_TIMEOUT", "2s")
	t.Setenv("INVOICES_INVOICE_DEFAULT_TAX_RATE", "7.25")
	t.Setenv("INVOICES_LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@localhost/invoices", cfg.Store.DSN)
	assert.Equal(t, int32(12), cfg.Store.MaxConns)
	assert.Equal(t, 2*time.Second, cfg.Store.StatementTimeout)
	assert.Equal(t, 7.25, cfg.Invoice.DefaultTaxRate)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Store.IsSQL())
}

func TestLoadConfig_BadValue(t *testing.T) {
	t.Setenv("INVOICES_STORE_DIAL_TIMEOUT", "soon")
	_, err := LoadConfig()
	require.Error(t, err)
	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:   StoreConfig{Driver: DriverFile, Dir: "./data"},
			Invoice: InvoiceConfig{DefaultTaxRate: 8},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Store.Driver = "redis"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = base()
	cfg.Store.Driver = DriverMySQL
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = base()
	cfg.Invoice.DefaultTaxRate = 120
	assert.ErrorIs(t, cfg.Validate(), ErrValidation)
}

func TestValidateTaxRate(t *testing.T) {
	assert.NoError(t, ValidateTaxRate(0))
	assert.NoError(t, ValidateTaxRate(100))
	assert.Error(t, ValidateTaxRate(-0.01))
	assert.Error(t, ValidateTaxRate(100.5))
	assert.Error(t, ValidateTaxRate(math.NaN()))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "  ", Required).
		Field("qty", "two", Required, Number).
		Field("rate", "75", Required, Number).
		Field("taxRate", "101", Between(0, 100))

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 3)
	assert.Equal(t, "name", v.Errors()[0].Field)
	assert.Equal(t, "qty", v.Errors()[1].Field)
	assert.Equal(t, "taxRate", v.Errors()[2].Field)
	assert.ErrorIs(t, v.Error(), ErrValidation)
	assert.Contains(t, v.ErrorMessage(), "must be a number")

	assert.NoError(t, NewValidator().Field("name", "Labor", Required, MaxLength(10)).Error())
	assert.Error(t, NewValidator().Field("name", "Labor and materials", MaxLength(10)).Error())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.Warn("storage write failed", "key", "@jobsite_invoices")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "storage write failed")
	assert.NotContains(t, out, "time=")
}
