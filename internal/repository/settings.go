package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/storage"
)

// Settings is the persisted settings document.
type Settings struct {
	TaxRate float64 `json:"taxRate"` // percent
}

type SettingsRepository interface {
	Load(ctx context.Context) (Settings, error)
	TaxRate(ctx context.Context) (float64, error)
	SaveTaxRate(ctx context.Context, rate float64) error
	Reset(ctx context.Context) error
}

type settingsRepository struct {
	store    storage.Store
	key      string
	defaults Settings
	logger   *slog.Logger
}

func NewSettingsRepository(store storage.Store, key string, defaultTaxRate float64, logger *slog.Logger) SettingsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsRepository{
		store:    store,
		key:      key,
		defaults: Settings{TaxRate: defaultTaxRate},
		logger:   logger,
	}
}

// Load returns the saved settings. Missing settings yield the defaults and
// ErrNoData; unreadable ones yield the defaults and the cause.
func (r *settingsRepository) Load(ctx context.Context) (Settings, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return r.defaults, ErrNoData
	}
	if err != nil {
		r.logger.Error("failed to read settings", "key", r.key, "error", err)
		return r.defaults, common.StorageError("read settings", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		r.logger.Error("stored settings are unreadable", "key", r.key, "error", err)
		return r.defaults, common.NewAppError("CORRUPT_DATA", "decode settings", errors.Wrap(common.ErrCorrupt, err.Error()))
	}
	if err := common.ValidateTaxRate(s.TaxRate); err != nil {
		r.logger.Warn("stored tax rate out of range, using default", "tax_rate", s.TaxRate)
		return r.defaults, common.NewAppError("CORRUPT_DATA", "decode settings", errors.Wrap(common.ErrCorrupt, err.Error()))
	}
	return s, nil
}

// TaxRate returns the saved rate, or the default when nothing usable is stored.
// A saved rate of zero is returned as zero. The error is informational: the
// returned rate is always usable.
func (r *settingsRepository) TaxRate(ctx context.Context) (float64, error) {
	s, err := r.Load(ctx)
	if errors.Is(err, ErrNoData) {
		return s.TaxRate, nil
	}
	return s.TaxRate, err
}

func (r *settingsRepository) SaveTaxRate(ctx context.Context, rate float64) error {
	if err := common.ValidateTaxRate(rate); err != nil {
		return err
	}
	b, err := json.Marshal(Settings{TaxRate: rate})
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	if err := r.store.Set(ctx, r.key, string(b)); err != nil {
		r.logger.Error("failed to save settings", "key", r.key, "error", err)
		return common.StorageError("write settings", err)
	}
	r.logger.Info("tax rate updated", "tax_rate", rate)
	return nil
}

func (r *settingsRepository) Reset(ctx context.Context) error {
	if err := r.store.Remove(ctx, r.key); err != nil {
		r.logger.Error("failed to reset settings", "key", r.key, "error", err)
		return common.StorageError("remove settings", err)
	}
	r.logger.Info("settings reset to defaults", "tax_rate", r.defaults.TaxRate)
	return nil
}
