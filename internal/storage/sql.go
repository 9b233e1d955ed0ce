package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"regexp"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	keyColumn   = "kv_key"
	valueColumn = "kv_value"
)

// SQLStore keeps key-value rows in a two-column table. Queries are built with
// ent's dialect-aware builder so the same code serves SQLite, Postgres and MySQL.
type SQLStore struct {
	drv     *entsql.Driver
	dialect string
	table   string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// NewSQLStore wraps db and creates the table if it does not exist.
func NewSQLStore(ctx context.Context, db *sql.DB, dialectName, table string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !tableNameRe.MatchString(table) {
		return nil, errors.Errorf("invalid table name %q", table)
	}
	s := &SQLStore{
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
		table:   table,
		logger:  logger,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	query := createTableQuery(s.dialect, s.table)
	if err := s.drv.Exec(ctx, query, []any{}, nil); err != nil {
		s.logger.Error("failed to create kv table", "table", s.table, "error", err)
		return errors.Wrapf(err, "create table %s", s.table)
	}
	s.logger.Debug("kv table ready", "table", s.table, "dialect", s.dialect)
	return nil
}

// createTableQuery returns the DDL for the key-value table with identifiers
// quoted for the dialect. MySQL cannot index TEXT keys, so it gets VARCHAR.
func createTableQuery(dialectName, table string) string {
	keyType, valueType := "TEXT", "TEXT"
	if dialectName == dialect.MySQL {
		keyType, valueType = "VARCHAR(191)", "LONGTEXT"
	}
	return entsql.Dialect(dialectName).String(func(b *entsql.Builder) {
		b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(table).Pad().Wrap(func(b *entsql.Builder) {
			b.Ident(keyColumn).Pad().WriteString(keyType + " NOT NULL").Comma()
			b.Ident(valueColumn).Pad().WriteString(valueType + " NOT NULL").Comma()
			b.WriteString("PRIMARY KEY ").Wrap(func(b *entsql.Builder) {
				b.Ident(keyColumn)
			})
		})
	})
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	b := entsql.Dialect(s.dialect)
	query, args := b.Select(valueColumn).
		From(b.Table(s.table)).
		Where(entsql.EQ(keyColumn, key)).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return "", errors.Wrapf(err, "select key %s", key)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", errors.Wrapf(err, "select key %s", key)
		}
		return "", ErrKeyNotFound
	}
	var value string
	if err := rows.Scan(&value); err != nil {
		return "", errors.Wrapf(err, "scan key %s", key)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query, args := entsql.Dialect(s.dialect).
		Insert(s.table).
		Columns(keyColumn, valueColumn).
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns(keyColumn),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return errors.Wrapf(err, "upsert key %s", key)
	}
	s.logger.Debug("key written", "key", key, "bytes", len(value))
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, key string) error {
	query, args := entsql.Dialect(s.dialect).
		Delete(s.table).
		Where(entsql.EQ(keyColumn, key)).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return errors.Wrapf(err, "delete key %s", key)
	}
	return nil
}

// Ping checks the connection, through the pgx pool when there is one.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.drv.DB().PingContext(ctx)
}

// Close closes the database connections gracefully
func (s *SQLStore) Close() error {
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
