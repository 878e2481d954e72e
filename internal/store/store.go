package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockpipeline/internal/failure"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists hourly quotes into a single PostgreSQL table.
type Store struct {
	db     DB
	schema string
	table  string
	ident  string
}

// Open creates a connection pool for dsn. Connections are established
// lazily, so an unreachable server surfaces on the first Ping or query.
func Open(ctx context.Context, dsn, schema, table string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, failure.Configuration("invalid database url: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, failure.Connectivity(err, "create connection pool")
	}

	return New(pool, schema, table), nil
}

// New wraps an existing pool. An empty schema means "public".
func New(db DB, schema, table string) *Store {
	if schema == "" {
		schema = "public"
	}
	return &Store{
		db:     db,
		schema: schema,
		table:  table,
		ident:  pgx.Identifier{schema, table}.Sanitize(),
	}
}

// Table returns the quoted, schema-qualified table name.
func (s *Store) Table() string {
	return s.ident
}

// Ping verifies a connection can be acquired and used.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

const tableExistsSQL = `
SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = $1 AND table_name = $2
)`

// TableExists reports whether the quotes table is present.
func (s *Store) TableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, tableExistsSQL, s.schema, s.table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table %s: %w", s.ident, err)
	}
	return exists, nil
}

// EnsureSchema creates the quotes table and its natural-key constraint
// if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL(s.ident)); err != nil {
		return failure.Schema(err, "create table %s", s.ident)
	}
	return nil
}

func createTableSQL(ident string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id          BIGSERIAL PRIMARY KEY,
	symbol      VARCHAR(10) NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	open_price  NUMERIC(12,4),
	high_price  NUMERIC(12,4),
	low_price   NUMERIC(12,4),
	close_price NUMERIC(12,4),
	volume      BIGINT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (symbol, timestamp)
)`, ident)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.db.Close()
}
