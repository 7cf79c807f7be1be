// Package mysql implements MySQL database adapter.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// MySQLAdapter implements the database.Adapter interface for MySQL.
type MySQLAdapter struct {
	db     *sql.DB
	config database.Config
}

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter(config database.Config) (*MySQLAdapter, error) {
	return &MySQLAdapter{
		config: config,
	}, nil
}

// NormalizeDSN accepts a driver DSN with or without a mysql:// prefix and
// enables DATE/DATETIME parsing into time.Time.
func NormalizeDSN(url string) (string, error) {
	cfg, err := mysql.ParseDSN(strings.TrimPrefix(url, "mysql://"))
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Connect establishes a connection to the MySQL database.
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	dsn, err := NormalizeDSN(a.config.URL)
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsn)
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
func (a *MySQLAdapter) Disconnect(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Execute executes a query without returning rows.
func (a *MySQLAdapter) Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *MySQLAdapter) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return a.db.QueryContext(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *MySQLAdapter) Begin(ctx context.Context) (database.Transaction, error) {
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
func (a *MySQLAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not connected")
	}
	return a.db.PingContext(ctx)
}

// ServerVersion returns the server version string.
func (a *MySQLAdapter) ServerVersion(ctx context.Context) (string, error) {
	if a.db == nil {
		return "", fmt.Errorf("database not connected")
	}
	var v string
	err := a.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v)
	return v, err
}

// TableColumns lists the columns of a table in the current database.
func (a *MySQLAdapter) TableColumns(ctx context.Context, table string) ([]domain.NativeColumn, error) {
	rows, err := a.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
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
func (a *MySQLAdapter) GetDialect() domain.Dialect {
	return domain.MySQL
}

// Ensure MySQLAdapter implements Adapter interface.
var _ database.Adapter = (*MySQLAdapter)(nil)
