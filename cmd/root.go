package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"salesdw/internal/config"
	"salesdw/internal/observability"
	"salesdw/internal/security"
	"salesdw/internal/ui"
	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// skipConfig marks commands that run without a resolved configuration.
const skipConfig = "skip-config"

var (
	cfgFile string
	current *app

	rootCmd = &cobra.Command{
		Use:   "salesdw",
		Short: "Build and validate the silver layer of the sales warehouse",
		Long: `salesdw loads CRM and ERP extracts into bronze, rebuilds the cleansed
silver tables from them and runs the quality checks that guard both layers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			current = a
			return nil
		},
	}
)

// flagKeys binds command line flags to configuration keys. A flag only
// overrides the file when it is set.
var flagKeys = map[string]string{
	"logging.level":             "log-level",
	"logging.format":            "log-format",
	"pipeline.transaction_mode": "mode",
	"ingest.source_dir":         "source",
	"metrics.textfile":          "metrics-file",
}

// app is what every command shares once the configuration is resolved.
type app struct {
	cfg     *models.Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func newApp(cmd *cobra.Command) (*app, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	cfg, err := config.Resolve(v)
	if err != nil {
		return nil, err
	}

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		ui.SetColor(false)
		color.NoColor = true
	}

	return &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg.Logging, cmd.ErrOrStderr()),
		metrics: observability.NewMetrics(),
	}, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to bind flag").WithContext("flag", name)
		}
	}
	return nil
}

// connect opens the configured warehouse, looking up the password in the
// credential store when the file leaves it out.
func (a *app) connect(ctx context.Context) (*warehouse.Service, error) {
	wcfg := a.cfg.Warehouse
	if security.NeedsPassword(wcfg) {
		store, err := security.NewStore(config.GetConfigPath())
		if err != nil {
			return nil, err
		}
		if err := security.ResolvePassword(store, &wcfg); err != nil {
			return nil, err
		}
	}

	wh, err := warehouse.NewService(wcfg, a.cfg.Layers, a.logger)
	if err != nil {
		return nil, err
	}
	if err := wh.Connect(ctx); err != nil {
		return nil, err
	}
	return wh, nil
}

// flushMetrics writes the run's metrics when a textfile is configured.
func (a *app) flushMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.Metrics.Textfile).Msg("failed to write metrics")
	}
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM
// cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.ShowError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error onto the process exit status.
func exitCode(err error) int {
	switch errors.GetErrorCode(err) {
	case errors.ErrCodeBatchPartial:
		return 2
	case errors.ErrCodeBatchFailed:
		return 3
	case errors.ErrCodeViolationsFound, errors.ErrCodeCheckFailed:
		return 4
	case errors.ErrCodeLockHeld:
		return 5
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigMissing, errors.ErrCodeConfigNotFound:
		return 6
	default:
		return 1
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.salesdw/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: console, json")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.Bool("no-color", false, "disable colored output")
}
