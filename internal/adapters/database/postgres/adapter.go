// Package postgres implements PostgreSQL database adapter.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// PostgresAdapter implements the database.Adapter interface for PostgreSQL.
type PostgresAdapter struct {
	db     *sql.DB
	config database.Config
}

// NewPostgresAdapter creates a new PostgreSQL adapter.
func NewPostgresAdapter(config database.Config) (*PostgresAdapter, error) {
	return &PostgresAdapter{
		config: config,
	}, nil
}

// Connect establishes a connection to the PostgreSQL database.
func (a *PostgresAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", a.config.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if a.config.MaxConnections > 0 {
		db.SetMaxOpenConns(a.config.MaxConnections)
		db.SetMaxIdleConns(a.config.MaxConnections / 2)
	}
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
func (a *PostgresAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Execute executes a query without returning rows.
func (a *PostgresAdapter) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *PostgresAdapter) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.QueryContext(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *PostgresAdapter) Begin(ctx context.Context) (database.Transaction, error) {
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
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

// ServerVersion returns the server_version setting.
func (a *PostgresAdapter) ServerVersion(ctx context.Context) (string, error) {
	if a.db == nil {
		return "", fmt.Errorf("database not connected")
	}
	var v string
	err := a.db.QueryRowContext(ctx, "SHOW server_version").Scan(&v)
	return v, err
}

// TableColumns lists the columns of a table in the current schema.
func (a *PostgresAdapter) TableColumns(ctx context.Context, table string) ([]domain.NativeColumn, error) {
	rows, err := a.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, table)
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
func (a *PostgresAdapter) GetDialect() domain.Dialect {
	return domain.Postgres
}

// Ensure PostgresAdapter implements Adapter interface.
var _ database.Adapter = (*PostgresAdapter)(nil)
