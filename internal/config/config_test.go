package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMemFs(t *testing.T) afero.Fs {
	t.Helper()
	prev := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { AppFs = prev })
	return AppFs
}

func TestLoadConfig_Defaults(t *testing.T) {
	withMemFs(t)

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Provider)
	assert.Equal(t, 2000, cfg.Pivot.PreviewLimit)
	assert.Equal(t, 200, cfg.Pivot.MaxWideColumns)
	assert.Equal(t, 1000, cfg.Loader.SampleRows)
	assert.Equal(t, ',', cfg.Loader.Delimiter)
	assert.False(t, cfg.Debug)
}

func TestLoadConfig_File(t *testing.T) {
	fs := withMemFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/csvpivot.yaml", []byte(
		"max_wide_columns: 50\npreview_limit: 100\ndelimiter: \";\"\ndebug: true\n"), 0o644))

	cfg, err := LoadConfig(viper.New(), "/etc/csvpivot.yaml")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Pivot.MaxWideColumns)
	assert.Equal(t, 100, cfg.Pivot.PreviewLimit)
	assert.Equal(t, ';', cfg.Loader.Delimiter)
	assert.True(t, cfg.Debug)
}

func TestLoadConfig_Env(t *testing.T) {
	withMemFs(t)
	t.Setenv("CSVPIVOT_MAX_WIDE_COLUMNS", "300")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Pivot.MaxWideColumns)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	withMemFs(t)
	_, err := LoadConfig(viper.New(), "/nope.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Provider: "sqlite"},
			Pivot:    PivotConfig{PreviewLimit: 2000, MaxWideColumns: 200},
			Loader:   LoaderConfig{SampleRows: 10, BatchSize: 10, Delimiter: ','},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"preview too small", func(c *Config) { c.Pivot.PreviewLimit = 49 }, "preview_limit"},
		{"preview too large", func(c *Config) { c.Pivot.PreviewLimit = 10001 }, "preview_limit"},
		{"wide too small", func(c *Config) { c.Pivot.MaxWideColumns = 9 }, "max_wide_columns"},
		{"wide too large", func(c *Config) { c.Pivot.MaxWideColumns = 1001 }, "max_wide_columns"},
		{"bad dialect", func(c *Config) { c.Database.Provider = "oracle" }, "unsupported dialect"},
		{"postgres without url", func(c *Config) { c.Database.Provider = "postgres" }, "requires database_url"},
		{"quote delimiter", func(c *Config) { c.Loader.Delimiter = '"' }, "delimiter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	fs := withMemFs(t)
	v := viper.New()
	v.Set("max_wide_columns", 120)

	require.NoError(t, SaveConfig(v, "/home/me/.csvpivot.yaml"))
	data, err := afero.ReadFile(fs, "/home/me/.csvpivot.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_wide_columns: 120")
}
