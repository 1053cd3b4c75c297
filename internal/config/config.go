package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"salesdw/internal/common"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. SALESDW_WAREHOUSE_DRIVER.
const EnvPrefix = "SALESDW"

// Supported drivers and transaction modes.
var (
	Drivers          = []string{"snowflake", "postgres", "duckdb", "sqlite"}
	TransactionModes = []string{"table", "batch"}
)

func GetConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".salesdw")
}

func GetConfigFile() string {
	if configFile := os.Getenv(EnvPrefix + "_CONFIG"); configFile != "" {
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Defaults returns the configuration used when no file or override sets a value.
func Defaults() *models.Config {
	return &models.Config{
		Warehouse: models.Warehouse{
			Driver:  "sqlite",
			Timeout: "30s",
		},
		Layers: models.Layers{
			Bronze: "bronze",
			Silver: "silver",
			Gold:   "gold",
		},
		Pipeline: models.Pipeline{
			TransactionMode: "table",
			BatchSize:       500,
		},
		Quality: models.Quality{
			Parallelism: 4,
			DetailLimit: 25,
		},
		Ingest: models.Ingest{
			SourceDir: "datasets",
		},
		Logging: models.Logging{
			Level:  "info",
			Format: "console",
		},
		Lock: models.Lock{
			Path: filepath.Join(GetConfigPath(), "salesdw.lock"),
		},
	}
}

// Load reads the YAML file at GetConfigFile. A missing file yields Defaults.
func Load() (*models.Config, error) {
	cleanedPath, err := common.CleanPath(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	cfg := Defaults()
	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Resolve layers defaults, the config file, SALESDW_* environment variables
// and any flags already bound on v, then validates the result.
func Resolve(v *viper.Viper) (*models.Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigFile(GetConfigFile())
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to read configuration").
			WithContext("file", v.ConfigFileUsed())
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to decode configuration")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(config *models.Config) error {
	configPath := filepath.Dir(GetConfigFile())
	if err := os.MkdirAll(configPath, common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetConfigFile(), data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func Validate(cfg *models.Config) error {
	if !contains(Drivers, cfg.Warehouse.Driver) {
		return errors.ConfigError(
			fmt.Sprintf("unsupported warehouse driver %q (want one of %s)", cfg.Warehouse.Driver, strings.Join(Drivers, ", ")),
			"warehouse.driver",
		)
	}
	if cfg.Warehouse.Driver == "snowflake" && cfg.Warehouse.DSN == "" {
		if cfg.Warehouse.Account == "" {
			return errors.ConfigError("account is required for snowflake", "warehouse.account")
		}
		if cfg.Warehouse.Username == "" {
			return errors.ConfigError("username is required for snowflake", "warehouse.username")
		}
	}
	if cfg.Warehouse.Driver == "postgres" && cfg.Warehouse.DSN == "" && cfg.Warehouse.Host == "" {
		return errors.ConfigError("host is required for postgres", "warehouse.host")
	}
	if _, err := Timeout(cfg); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid timeout %q", cfg.Warehouse.Timeout), "warehouse.timeout")
	}
	if cfg.Layers.Bronze == "" || cfg.Layers.Silver == "" {
		return errors.ConfigError("bronze and silver schema names are required", "layers")
	}
	if cfg.Layers.Bronze == cfg.Layers.Silver {
		return errors.ConfigError("bronze and silver must be different schemas", "layers")
	}
	if !contains(TransactionModes, cfg.Pipeline.TransactionMode) {
		return errors.ConfigError(
			fmt.Sprintf("unsupported transaction mode %q", cfg.Pipeline.TransactionMode),
			"pipeline.transaction_mode",
		)
	}
	if cfg.Pipeline.BatchSize <= 0 {
		return errors.ValidationError("pipeline.batch_size", cfg.Pipeline.BatchSize, "must be positive")
	}
	if cfg.Quality.Parallelism <= 0 {
		return errors.ValidationError("quality.parallelism", cfg.Quality.Parallelism, "must be positive")
	}
	return nil
}

// Timeout parses warehouse.timeout; empty means no timeout.
func Timeout(cfg *models.Config) (time.Duration, error) {
	if cfg.Warehouse.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(cfg.Warehouse.Timeout)
}

// setDefaults registers every key with viper so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, cfg *models.Config) {
	defaults := map[string]interface{}{
		"warehouse.driver":          cfg.Warehouse.Driver,
		"warehouse.dsn":             "",
		"warehouse.account":         "",
		"warehouse.host":            "",
		"warehouse.port":            0,
		"warehouse.username":        "",
		"warehouse.password":        "",
		"warehouse.database":        "",
		"warehouse.warehouse":       "",
		"warehouse.role":            "",
		"warehouse.path":            "",
		"warehouse.ssl_mode":        "",
		"warehouse.timeout":         cfg.Warehouse.Timeout,
		"layers.bronze":             cfg.Layers.Bronze,
		"layers.silver":             cfg.Layers.Silver,
		"layers.gold":               cfg.Layers.Gold,
		"pipeline.transaction_mode": cfg.Pipeline.TransactionMode,
		"pipeline.batch_size":       cfg.Pipeline.BatchSize,
		"quality.parallelism":       cfg.Quality.Parallelism,
		"quality.detail_limit":      cfg.Quality.DetailLimit,
		"ingest.source_dir":         cfg.Ingest.SourceDir,
		"logging.level":             cfg.Logging.Level,
		"logging.format":            cfg.Logging.Format,
		"metrics.textfile":          "",
		"lock.path":                 cfg.Lock.Path,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
