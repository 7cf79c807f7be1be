// Package commands implements CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeffhb60/csv-pivot-app/internal/config"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
	"github.com/jeffhb60/csv-pivot-app/internal/utils/container"
	"github.com/jeffhb60/csv-pivot-app/internal/version"
)

// App carries the state commands share once flags are parsed.
type App struct {
	v          *viper.Viper
	configFile string
	container  *container.Container
}

// NewApp creates an App reading settings through v.
func NewApp(v *viper.Viper) *App {
	return &App{v: v}
}

// Container returns the dependency container. It is nil before the root
// command's pre-run hook has loaded the configuration.
func (a *App) Container() *container.Container {
	return a.container
}

// Close releases the container's resources.
func (a *App) Close(ctx context.Context) error {
	if a.container == nil {
		return nil
	}
	return a.container.Close(ctx)
}

func (a *App) load() error {
	cfg, err := config.LoadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	debug.Init(cfg.Debug)
	debug.Debug("Configuration loaded", "config", a.v.ConfigFileUsed(), "dialect", cfg.Database.Provider, "cache_dir", cfg.Loader.CacheDir)

	c, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	a.container = c
	return nil
}

// NewRootCommand creates the root command with the flags every command shares.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "csvpivot",
		Short:         "Pivot summaries over CSV files",
		Long:          "csvpivot builds Excel-style pivot tables over CSV files, or over PostgreSQL, MySQL and SQLite tables, without loading the data into memory.",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfig"] == "true" {
				return nil
			}
			return app.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "Config file (default .csvpivot.yaml in ., $HOME or $HOME/.config/csvpivot)")
	flags.String("dialect", "sqlite", "Engine: sqlite, postgres or mysql")
	flags.String("database-url", "", "Database URL for table sources (falls back to DATABASE_URL)")
	flags.String("table", "", "Pivot over this database table instead of a CSV file")
	flags.String("cache-dir", "", "Directory for imported CSV databases")
	flags.String("delimiter", "", "CSV field delimiter")
	flags.Bool("debug", false, "Enable debug logging")

	for key, flag := range map[string]string{
		"dialect":      "dialect",
		"database_url": "database-url",
		"table":        "table",
		"cache_dir":    "cache-dir",
		"delimiter":    "delimiter",
		"debug":        "debug",
	} {
		_ = app.v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}
