// Package container provides dependency injection.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database/mysql"
	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database/postgres"
	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database/sqlite"
	"github.com/jeffhb60/csv-pivot-app/internal/config"
	"github.com/jeffhb60/csv-pivot-app/internal/core/loader"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/core/schema"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
	"github.com/jeffhb60/csv-pivot-app/internal/service"
)

// SchemaCacheSize bounds the number of cached relation schemas.
const SchemaCacheSize = 64

// Container holds all application dependencies.
type Container struct {
	// Configuration
	config *config.Config

	// Adapters
	loader   *loader.Loader
	adapters []database.Adapter

	// Services
	inspector    *schema.Inspector
	pivotService *service.PivotService

	mu       sync.Mutex
	datasets map[string]*loader.Dataset
}

// NewContainer creates a new dependency injection container.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	c := &Container{
		config:   cfg,
		datasets: make(map[string]*loader.Dataset),
	}

	c.loader = loader.New(config.AppFs, loader.Options{
		CacheDir:   cfg.Loader.CacheDir,
		SampleRows: cfg.Loader.SampleRows,
		BatchSize:  cfg.Loader.BatchSize,
		Delimiter:  cfg.Loader.Delimiter,
	})

	c.inspector = schema.NewInspector(schema.NewCache(SchemaCacheSize))
	c.pivotService = service.NewPivotService(c.inspector)

	return c, nil
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Fs returns the filesystem CSV sources are read from.
func (c *Container) Fs() afero.Fs {
	return config.AppFs
}

// PivotService returns the pivot service.
func (c *Container) PivotService() *service.PivotService {
	return c.pivotService
}

// External reports whether pivots run over a database table rather than an
// imported CSV file.
func (c *Container) External() bool {
	return c.config.Database.Provider != string(domain.SQLite) || c.config.Database.Table != ""
}

// Open returns the relation named by source. In CSV mode source is a file path
// and is imported on first use; otherwise it names a table of the configured
// database and defaults to the configured table.
func (c *Container) Open(ctx context.Context, source string) (domain.Relation, error) {
	if c.External() {
		return c.openTable(ctx, source)
	}
	if source == "" {
		return nil, errors.New("a CSV file is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ds, ok := c.datasets[source]; ok {
		err := ds.Adapter.Ping(ctx)
		if err == nil {
			return ds.Relation, nil
		}
		debug.Warn("Imported CSV connection lost, reloading", "path", source, "error", err)
		c.inspector.Invalidate(ds.Relation.Name())
		ds.Close(ctx)
		delete(c.datasets, source)
	}
	ds, err := c.loadLocked(ctx, source)
	if err != nil {
		return nil, err
	}
	return ds.Relation, nil
}

// Reload re-imports a CSV file after it changed and drops its cached schema.
func (c *Container) Reload(ctx context.Context, path string) (domain.Relation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.datasets[path]; ok {
		c.inspector.Invalidate(old.Relation.Name())
		if err := old.Close(ctx); err != nil {
			debug.Warn("Failed to close previous import", "path", path, "error", err)
		}
		delete(c.datasets, path)
	}
	ds, err := c.loadLocked(ctx, path)
	if err != nil {
		return nil, err
	}
	return ds.Relation, nil
}

// Dataset returns the import of path, if it has been opened.
func (c *Container) Dataset(path string) (*loader.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, ok := c.datasets[path]
	return ds, ok
}

func (c *Container) loadLocked(ctx context.Context, path string) (*loader.Dataset, error) {
	ds, err := c.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := database.Verify(ctx, ds.Adapter); err != nil {
		ds.Close(ctx)
		return nil, err
	}
	debug.Info("CSV ready", "path", path, "table", ds.Relation.Name(), "rows", ds.Rows, "cached", ds.Cached)
	c.datasets[path] = ds
	return ds, nil
}

func (c *Container) openTable(ctx context.Context, table string) (domain.Relation, error) {
	if table == "" {
		table = c.config.Database.Table
	}
	if table == "" {
		return nil, errors.New("a table name is required for database sources")
	}
	if c.config.Database.URL == "" {
		return nil, fmt.Errorf("dialect %q requires a database URL", c.config.Database.Provider)
	}

	adapter, err := createDatabaseAdapter(c.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	if err := database.Verify(ctx, adapter); err != nil {
		adapter.Disconnect(ctx)
		return nil, err
	}

	c.mu.Lock()
	c.adapters = append(c.adapters, adapter)
	c.mu.Unlock()

	fp := fmt.Sprintf("%016x", xxh3.HashString(c.config.Database.Provider+"|"+c.config.Database.URL+"|"+table))
	return database.NewTableRelation(adapter, table, fp), nil
}

// Close cleans up resources.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for path, ds := range c.datasets {
		errs = append(errs, ds.Close(ctx))
		delete(c.datasets, path)
	}
	for _, a := range c.adapters {
		errs = append(errs, a.Disconnect(ctx))
	}
	c.adapters = nil
	return errors.Join(errs...)
}

// createDatabaseAdapter creates the appropriate database adapter based on provider.
func createDatabaseAdapter(cfg config.DatabaseConfig) (database.Adapter, error) {
	dbConfig := database.Config{
		Provider:       cfg.Provider,
		URL:            cfg.URL,
		MaxConnections: cfg.MaxConnections,
		MaxIdleTime:    cfg.MaxIdleTime,
		ConnectTimeout: cfg.ConnectTimeout,
	}

	var adapter database.Adapter
	var err error

	switch cfg.Provider {
	case "postgresql", "postgres":
		adapter, err = postgres.NewPostgresAdapter(dbConfig)
	case "mysql":
		adapter, err = mysql.NewMySQLAdapter(dbConfig)
	case "sqlite":
		adapter, err = sqlite.NewSQLiteAdapter(dbConfig)
	default:
		return nil, fmt.Errorf("unsupported database provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	return adapter, nil
}
