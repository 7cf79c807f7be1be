// Package config provides configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem used for config, dotenv and CSV access.
var AppFs = afero.NewOsFs()

// Name of the config file, without extension.
const Name = ".csvpivot"

// Ranges accepted for the pivot settings.
const (
	MinPreviewLimit   = 50
	MaxPreviewLimit   = 10000
	MinMaxWideColumns = 10
	MaxMaxWideColumns = 1000
)

// Config represents application configuration.
type Config struct {
	Database DatabaseConfig
	Pivot    PivotConfig
	Loader   LoaderConfig
	Debug    bool
}

// DatabaseConfig selects the engine pivots run against.
type DatabaseConfig struct {
	Provider       string
	URL            string
	Table          string
	MaxConnections int
	MaxIdleTime    int // seconds
	ConnectTimeout int // seconds
}

// PivotConfig holds the output guards of a pivot.
type PivotConfig struct {
	PreviewLimit   int
	MaxWideColumns int
}

// LoaderConfig controls how CSV files are imported into the embedded engine.
type LoaderConfig struct {
	CacheDir   string
	SampleRows int
	BatchSize  int
	Delimiter  rune
}

// Defaults registers every default on v.
func Defaults(v *viper.Viper, home string) {
	v.SetDefault("dialect", "sqlite")
	v.SetDefault("database_url", "")
	v.SetDefault("table", "")
	v.SetDefault("max_connections", 4)
	v.SetDefault("max_idle_time", 60)
	v.SetDefault("connect_timeout", 10)
	v.SetDefault("preview_limit", 2000)
	v.SetDefault("max_wide_columns", 200)
	v.SetDefault("cache_dir", filepath.Join(home, ".cache", "csvpivot"))
	v.SetDefault("sample_rows", 1000)
	v.SetDefault("batch_size", 500)
	v.SetDefault("delimiter", ",")
	v.SetDefault("debug", false)
}

// LoadConfig loads configuration from the config file, the environment and
// .env files. An explicit configFile must exist; otherwise a missing file is fine.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v.SetFs(AppFs)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "csvpivot"))
	}

	v.SetEnvPrefix("CSVPIVOT")
	v.AutomaticEnv()
	Defaults(v, home)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env.local has higher priority than .env; neither is required.
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	url := v.GetString("database_url")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}

	delim, _ := utf8.DecodeRuneInString(v.GetString("delimiter"))

	cfg := &Config{
		Database: DatabaseConfig{
			Provider:       v.GetString("dialect"),
			URL:            url,
			Table:          v.GetString("table"),
			MaxConnections: v.GetInt("max_connections"),
			MaxIdleTime:    v.GetInt("max_idle_time"),
			ConnectTimeout: v.GetInt("connect_timeout"),
		},
		Pivot: PivotConfig{
			PreviewLimit:   v.GetInt("preview_limit"),
			MaxWideColumns: v.GetInt("max_wide_columns"),
		},
		Loader: LoaderConfig{
			CacheDir:   expand(v.GetString("cache_dir")),
			SampleRows: v.GetInt("sample_rows"),
			BatchSize:  v.GetInt("batch_size"),
			Delimiter:  delim,
		},
		Debug: v.GetBool("debug"),
	}
	if utf8.RuneCountInString(v.GetString("delimiter")) != 1 {
		cfg.Loader.Delimiter = 0
	}

	return cfg, cfg.Validate()
}

// Validate checks every setting against its accepted range.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Provider {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		errs = append(errs, fmt.Errorf("unsupported dialect %q", c.Database.Provider))
	}
	if c.Database.Provider != "sqlite" && c.Database.URL == "" {
		errs = append(errs, fmt.Errorf("dialect %q requires database_url", c.Database.Provider))
	}
	if c.Pivot.PreviewLimit < MinPreviewLimit || c.Pivot.PreviewLimit > MaxPreviewLimit {
		errs = append(errs, fmt.Errorf("preview_limit must be between %d and %d, got %d",
			MinPreviewLimit, MaxPreviewLimit, c.Pivot.PreviewLimit))
	}
	if c.Pivot.MaxWideColumns < MinMaxWideColumns || c.Pivot.MaxWideColumns > MaxMaxWideColumns {
		errs = append(errs, fmt.Errorf("max_wide_columns must be between %d and %d, got %d",
			MinMaxWideColumns, MaxMaxWideColumns, c.Pivot.MaxWideColumns))
	}
	if c.Loader.SampleRows <= 0 {
		errs = append(errs, fmt.Errorf("sample_rows must be positive, got %d", c.Loader.SampleRows))
	}
	if c.Loader.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.Loader.BatchSize))
	}
	if c.Loader.Delimiter == 0 || c.Loader.Delimiter == '"' || c.Loader.Delimiter == '\n' {
		errs = append(errs, errors.New("delimiter must be a single character other than a quote or newline"))
	}
	return errors.Join(errs...)
}

// SaveConfig writes the current settings to path, creating parent directories.
func SaveConfig(v *viper.Viper, path string) error {
	if err := AppFs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v.SetFs(AppFs)
	return v.WriteConfigAs(path)
}

func expand(path string) string {
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}
