// Package sqlite implements SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// SQLiteAdapter implements the database.Adapter interface for SQLite.
type SQLiteAdapter struct {
	db     *sql.DB
	config database.Config
}

// NewSQLiteAdapter creates a new SQLite adapter. The URL is a file path or ":memory:".
func NewSQLiteAdapter(config database.Config) (*SQLiteAdapter, error) {
	return &SQLiteAdapter{
		config: config,
	}, nil
}

// Connect establishes a connection to the SQLite database.
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open(DriverName, a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(time.Duration(a.config.MaxIdleTime) * time.Second)

	timeout := a.config.ConnectTimeout
	if timeout <= 0 {
		timeout = database.DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	return nil
}

// Disconnect closes the database connection.
func (a *SQLiteAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Execute executes a query without returning rows.
func (a *SQLiteAdapter) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *SQLiteAdapter) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.QueryContext(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *SQLiteAdapter) Begin(ctx context.Context) (database.Transaction, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &database.SQLTransaction{Tx: tx}, nil
}

// Ping checks if the database connection is alive.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

// ServerVersion returns the linked SQLite library version.
func (a *SQLiteAdapter) ServerVersion(ctx context.Context) (string, error) {
	if a.db == nil {
		return "", fmt.Errorf("database not connected")
	}
	var v string
	err := a.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v)
	return v, err
}

// TableColumns lists the declared columns of a table or view.
func (a *SQLiteAdapter) TableColumns(ctx context.Context, table string) ([]domain.NativeColumn, error) {
	rows, err := a.Query(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []domain.NativeColumn
	for rows.Next() {
		var c domain.NativeColumn
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// GetDialect returns the SQL dialect.
func (a *SQLiteAdapter) GetDialect() domain.Dialect {
	return domain.SQLite
}

// Ensure SQLiteAdapter implements Adapter interface.
var _ database.Adapter = (*SQLiteAdapter)(nil)
