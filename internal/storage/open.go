package storage

import (
	"context"
	"database/sql"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
)

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case common.DriverMemory:
		logger.Warn("using in-memory store, invoices will not persist")
		return NewMemoryStore(), nil
	case common.DriverFile:
		return NewFileStore(cfg.Dir, logger)
	case common.DriverSQLite:
		return openSQLite(ctx, cfg, logger)
	case common.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case common.DriverMySQL:
		return openMySQL(ctx, cfg, logger)
	}
	return nil, errors.Errorf("unknown store driver %q", cfg.Driver)
}

func openSQLite(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*SQLStore, error) {
	logger.Info("opening sqlite store", "dsn", cfg.DSN)
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open sqlite", "error", err)
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one connection: ":memory:" databases are per-connection and writers serialize anyway
	db.SetMaxOpenConns(1)

	s, err := NewSQLStore(ctx, db, dialect.SQLite, cfg.Table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// openPostgres creates a pgx pool and wraps it as *sql.DB for the ent driver.
func openPostgres(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*SQLStore, error) {
	logger.Info("connecting to postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse postgres dsn", "error", err)
		return nil, errors.Wrap(err, "parse postgres dsn")
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "jobsite-invoices"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil, errors.Wrap(err, "connect postgres")
	}

	s, err := NewSQLStore(ctx, stdlib.OpenDBFromPool(pool), dialect.Postgres, cfg.Table, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	logger.Info("successfully connected to postgres")
	return s, nil
}

func openMySQL(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*SQLStore, error) {
	logger.Info("connecting to mysql")
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse mysql dsn", "error", err)
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	if cfg.DialTimeout > 0 {
		mc.Timeout = cfg.DialTimeout
	}
	if cfg.StatementTimeout > 0 {
		mc.ReadTimeout = cfg.StatementTimeout
		mc.WriteTimeout = cfg.StatementTimeout
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, errors.Wrap(err, "mysql connector")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	s, err := NewSQLStore(ctx, db, dialect.MySQL, cfg.Table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("successfully connected to mysql")
	return s, nil
}
