package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect диалект SQL для таблицы kv_entries
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

type dialectQueries struct {
	createTable string
	upsert      string
}

var queries = map[Dialect]dialectQueries{
	DialectSQLite: {
		createTable: `CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		upsert: `INSERT INTO kv_entries (entry_key, payload) VALUES (?, ?)
			ON CONFLICT(entry_key) DO UPDATE SET payload = excluded.payload`,
	},
	DialectMySQL: {
		createTable: `CREATE TABLE IF NOT EXISTS kv_entries (
			entry_key VARCHAR(255) NOT NULL PRIMARY KEY,
			payload LONGBLOB NOT NULL
		)`,
		upsert: `INSERT INTO kv_entries (entry_key, payload) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE payload = VALUES(payload)`,
	},
}

// SQLArea хранилище на database/sql: SQLite-файл или MySQL
type SQLArea struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLArea открывает соединение драйвером диалекта и создает таблицу
func OpenSQLArea(ctx context.Context, dialect Dialect, dsn string) (*SQLArea, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", dialect)
	}
	if _, ok := queries[dialect]; !ok {
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	area, err := NewSQLArea(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return area, nil
}

// NewSQLArea использует уже открытое соединение
func NewSQLArea(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLArea, error) {
	q, ok := queries[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}
	if _, err := db.ExecContext(ctx, q.createTable); err != nil {
		return nil, fmt.Errorf("failed to create kv_entries table: %w", err)
	}
	return &SQLArea{db: db, dialect: dialect}, nil
}

func (s *SQLArea) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM kv_entries WHERE entry_key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return payload, true, nil
}

func (s *SQLArea) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, queries[s.dialect].upsert, key, value); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLArea) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (s *SQLArea) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLArea) Close() error {
	return s.db.Close()
}
