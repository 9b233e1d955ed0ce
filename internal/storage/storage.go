// Package storage provides the key-value store invoices and settings are
// persisted in. Every value is an opaque string; the invoice list lives under
// a single key and is always rewritten whole.
package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by Get when the key has never been set or was removed.
var ErrKeyNotFound = errors.New("key not found")

// Store is the get/set/remove contract the application persists through.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding resources.
type Closer interface {
	Close() error
}

// HealthCheck pings the store when it supports it. Stores without a
// connection are always healthy.
func HealthCheck(ctx context.Context, store Store, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	p, ok := store.(Pinger)
	if !ok {
		logger.Debug("store has no connection to ping")
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging store")
	if err := p.Ping(ctx); err != nil {
		logger.Error("store ping failed", "error", err)
		return errors.Wrap(err, "ping store")
	}
	logger.Debug("store ping successful")
	return nil
}

// Close releases the store if it holds resources.
func Close(store Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	c, ok := store.(Closer)
	if !ok {
		return
	}
	logger.Info("closing store")
	if err := c.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
		return
	}
	logger.Info("store closed")
}
