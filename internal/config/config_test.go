package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

func TestGetConfigPath(t *testing.T) {
	t.Setenv("SALESDW_CONFIG", "")
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".salesdw"), GetConfigPath())
	assert.Equal(t, filepath.Join(home, ".salesdw", "config.yaml"), GetConfigFile())
}

func TestGetConfigFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	t.Setenv("SALESDW_CONFIG", file)

	assert.Equal(t, file, GetConfigFile())
	assert.Equal(t, dir, GetConfigPath())
}

func TestSaveAndLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SALESDW_CONFIG", file)

	assert.False(t, Exists())

	cfg := Defaults()
	cfg.Warehouse.Driver = "postgres"
	cfg.Warehouse.Host = "localhost"
	cfg.Warehouse.Port = 5432
	cfg.Pipeline.TransactionMode = "batch"
	cfg.Standardize.Aliases = map[string]map[string]string{
		"country": {"UK": "United Kingdom"},
	}
	require.NoError(t, Save(cfg))
	assert.True(t, Exists())

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", loaded.Warehouse.Driver)
	assert.Equal(t, 5432, loaded.Warehouse.Port)
	assert.Equal(t, "batch", loaded.Pipeline.TransactionMode)
	assert.Equal(t, "United Kingdom", loaded.Standardize.Aliases["country"]["UK"])
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("SALESDW_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Layers, cfg.Layers)
}

func TestResolveLayersFileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SALESDW_CONFIG", file)
	require.NoError(t, os.WriteFile(file, []byte(`
warehouse:
  driver: duckdb
  path: /tmp/dw.duckdb
layers:
  bronze: raw
quality:
  parallelism: 2
`), 0600))

	t.Setenv("SALESDW_LAYERS_SILVER", "clean")
	t.Setenv("SALESDW_PIPELINE_BATCH_SIZE", "50")

	cfg, err := Resolve(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Warehouse.Driver)
	assert.Equal(t, "/tmp/dw.duckdb", cfg.Warehouse.Path)
	assert.Equal(t, "raw", cfg.Layers.Bronze)
	assert.Equal(t, "clean", cfg.Layers.Silver)
	assert.Equal(t, "gold", cfg.Layers.Gold)
	assert.Equal(t, 50, cfg.Pipeline.BatchSize)
	assert.Equal(t, 2, cfg.Quality.Parallelism)
	assert.Equal(t, "table", cfg.Pipeline.TransactionMode)
}

func TestResolveWithoutFile(t *testing.T) {
	t.Setenv("SALESDW_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Warehouse.Driver)
	assert.Equal(t, 500, cfg.Pipeline.BatchSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Config)
		code   errors.ErrorCode
	}{
		{"defaults are valid", func(*models.Config) {}, ""},
		{"unknown driver", func(c *models.Config) { c.Warehouse.Driver = "oracle" }, errors.ErrCodeConfigInvalid},
		{"snowflake needs account", func(c *models.Config) { c.Warehouse.Driver = "snowflake" }, errors.ErrCodeConfigInvalid},
		{"snowflake dsn is enough", func(c *models.Config) {
			c.Warehouse.Driver = "snowflake"
			c.Warehouse.DSN = "user:pass@acct/db"
		}, ""},
		{"postgres needs host", func(c *models.Config) { c.Warehouse.Driver = "postgres" }, errors.ErrCodeConfigInvalid},
		{"bad timeout", func(c *models.Config) { c.Warehouse.Timeout = "soon" }, errors.ErrCodeConfigInvalid},
		{"same layer schemas", func(c *models.Config) { c.Layers.Silver = c.Layers.Bronze }, errors.ErrCodeConfigInvalid},
		{"bad transaction mode", func(c *models.Config) { c.Pipeline.TransactionMode = "none" }, errors.ErrCodeConfigInvalid},
		{"zero batch size", func(c *models.Config) { c.Pipeline.BatchSize = 0 }, errors.ErrCodeValidationFailed},
		{"zero parallelism", func(c *models.Config) { c.Quality.Parallelism = 0 }, errors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
		})
	}
}

func TestTimeout(t *testing.T) {
	cfg := Defaults()
	d, err := Timeout(cfg)
	require.NoError(t, err)
	assert.Equal(t, "30s", d.String())

	cfg.Warehouse.Timeout = ""
	d, err = Timeout(cfg)
	require.NoError(t, err)
	assert.Zero(t, d)
}
