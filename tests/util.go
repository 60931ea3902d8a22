package testutil

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shule/core"
)

// DB is a no-op core.DB for service tests: the transaction helpers run against
// it while in-memory repositories hold the actual state.
type DB struct{}

var _ core.DB = (*DB)(nil)

func NewDB() *DB { return &DB{} }

func (db *DB) DriverName() string         { return "postgres" }
func (db *DB) Rebind(query string) string { return query }

func (db *DB) BindNamed(query string, arg interface{}) (string, []interface{}, error) {
	return query, nil, nil
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, nil
}

func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return nil
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	return &Tx{}, nil
}

// Tx is the no-op transactor handed out by DB.BeginTxx.
type Tx struct {
	DB
}

var _ core.DBTransactor = (*Tx)(nil)

func (tx *Tx) Commit() error   { return nil }
func (tx *Tx) Rollback() error { return nil }
