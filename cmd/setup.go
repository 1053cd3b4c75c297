package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"salesdw/internal/config"
	"salesdw/internal/security"
	"salesdw/internal/ui"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:         "setup",
	Short:       "Interactive configuration setup",
	Long:        "Asks for the warehouse connection, writes the config file and stores the password in the OS keyring.",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// connectionAnswers collects the driver specific prompts.
type connectionAnswers struct {
	Account   string
	Host      string
	Port      string
	Username  string
	Password  string
	Database  string
	Warehouse string
	Role      string
	Path      string
	SSLMode   string `survey:"sslmode"`
	SourceDir string `survey:"source"`
}

func runSetup(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if cfgFile != "" {
		if err := os.Setenv(config.EnvPrefix+"_CONFIG", cfgFile); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "Failed to select config file")
		}
	}

	ui.ShowHeader(out, "salesdw setup")

	if config.Exists() {
		overwrite, err := ui.Confirm("Configuration already exists. Overwrite it?", false)
		if err != nil {
			return err
		}
		if !overwrite {
			ui.ShowInfo(out, "Setup cancelled")
			return nil
		}
	}

	driver, err := ui.Select("Warehouse driver:", config.Drivers, "snowflake")
	if err != nil {
		return err
	}

	var answers connectionAnswers
	if err := survey.Ask(connectionQuestions(driver), &answers); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Setup aborted")
	}

	cfg, err := buildConfig(driver, answers)
	if err != nil {
		return err
	}

	if answers.Password != "" {
		store, err := security.NewStore(config.GetConfigPath())
		if err != nil {
			return err
		}
		if err := store.Set(security.Account(cfg.Warehouse), answers.Password); err != nil {
			return err
		}
		where := "encrypted file store"
		if store.UsesKeyring() {
			where = "OS keyring"
		}
		ui.ShowSuccess(out, "Password stored in the "+where)
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to save configuration").
			WithContext("path", config.GetConfigFile())
	}

	ui.ShowSuccess(out, "Configuration saved to "+config.GetConfigFile())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  salesdw schema apply")
	fmt.Fprintln(out, "  salesdw ingest")
	fmt.Fprintln(out, "  salesdw transform")
	fmt.Fprintln(out, "  salesdw check")
	return nil
}

func connectionQuestions(driver string) []*survey.Question {
	input := func(name, message, def string, required bool) *survey.Question {
		q := &survey.Question{Name: name, Prompt: &survey.Input{Message: message, Default: def}}
		if required {
			q.Validate = survey.Required
		}
		return q
	}
	password := &survey.Question{Name: "password", Prompt: &survey.Password{
		Message: "Password:",
		Help:    "Stored in the OS keyring, never in the config file",
	}}
	source := input("source", "Directory holding the CSV extracts:", "datasets", true)

	switch driver {
	case "snowflake":
		return []*survey.Question{
			input("account", "Snowflake account (e.g., xy12345.us-east-1):", "", true),
			input("username", "Username:", "", true),
			password,
			input("database", "Database:", "DATAWAREHOUSE", true),
			input("warehouse", "Warehouse:", "COMPUTE_WH", true),
			input("role", "Role:", "", false),
			source,
		}
	case "postgres":
		return []*survey.Question{
			input("host", "Host:", "localhost", true),
			input("port", "Port:", "5432", true),
			input("username", "Username:", "", true),
			password,
			input("database", "Database:", "datawarehouse", true),
			input("sslmode", "SSL mode:", "require", true),
			source,
		}
	default:
		return []*survey.Question{
			input("path", "Database file (empty for in-memory):", "datawarehouse."+driver, false),
			source,
		}
	}
}

// buildConfig turns wizard answers into a configuration on top of the
// defaults. The password is left out; it goes to the credential store.
func buildConfig(driver string, a connectionAnswers) (*models.Config, error) {
	cfg := config.Defaults()
	cfg.Warehouse.Driver = driver
	cfg.Ingest.SourceDir = a.SourceDir

	switch driver {
	case "snowflake":
		cfg.Warehouse.Account = a.Account
		cfg.Warehouse.Username = a.Username
		cfg.Warehouse.Database = a.Database
		cfg.Warehouse.Warehouse = a.Warehouse
		cfg.Warehouse.Role = a.Role
	case "postgres":
		port, err := strconv.Atoi(a.Port)
		if err != nil {
			return nil, errors.ValidationError("warehouse.port", a.Port, "must be a number")
		}
		cfg.Warehouse.Host = a.Host
		cfg.Warehouse.Port = port
		cfg.Warehouse.Username = a.Username
		cfg.Warehouse.Database = a.Database
		cfg.Warehouse.SSLMode = a.SSLMode
	default:
		cfg.Warehouse.Path = a.Path
	}
	return cfg, nil
}
