// Package database defines database adapter interfaces.
package database

import (
	"context"
	"database/sql"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// Adapter defines the database adapter interface.
type Adapter interface {
	// Connect establishes a database connection.
	Connect(ctx context.Context) error

	// Disconnect closes the database connection.
	Disconnect(ctx context.Context) error

	// Execute executes a SQL statement.
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Query executes a query that returns rows.
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// Begin starts a transaction.
	Begin(ctx context.Context) (Transaction, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ServerVersion reports the engine version string.
	ServerVersion(ctx context.Context) (string, error)

	// TableColumns lists the columns of a table with their native types.
	TableColumns(ctx context.Context, table string) ([]domain.NativeColumn, error)

	// GetDialect returns the SQL dialect.
	GetDialect() domain.Dialect
}

// Transaction defines the transaction interface.
type Transaction interface {
	// Commit commits the transaction.
	Commit() error

	// Rollback rolls back the transaction.
	Rollback() error

	// Execute executes a statement within the transaction.
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Prepare creates a prepared statement bound to the transaction.
	Prepare(ctx context.Context, query string) (*sql.Stmt, error)
}

// Config holds database connection configuration.
type Config struct {
	Provider       string
	URL            string
	MaxConnections int
	MaxIdleTime    int // seconds
	ConnectTimeout int // seconds
}

// DefaultConnectTimeout is used when Config.ConnectTimeout is not set.
const DefaultConnectTimeout = 10

// SQLTransaction implements Transaction on top of *sql.Tx.
type SQLTransaction struct {
	Tx *sql.Tx
}

// Commit commits the transaction.
func (t *SQLTransaction) Commit() error {
	return t.Tx.Commit()
}

// Rollback rolls back the transaction.
func (t *SQLTransaction) Rollback() error {
	return t.Tx.Rollback()
}

// Execute executes a query within the transaction.
func (t *SQLTransaction) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.Tx.ExecContext(ctx, query, args...)
}

// Prepare creates a prepared statement within the transaction.
func (t *SQLTransaction) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	return t.Tx.PrepareContext(ctx, query)
}

var _ Transaction = (*SQLTransaction)(nil)
