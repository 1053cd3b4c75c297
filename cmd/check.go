package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"salesdw/internal/quality"
	"salesdw/internal/standardize"
	"salesdw/internal/ui"
	"salesdw/pkg/errors"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the quality checks against bronze and silver",
	Long: `Runs the read-only quality checks and prints the violation count of each.
The command fails when an error-severity check finds violations or a check
query cannot run. Warnings describe raw or cross-entity data and never fail.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("layer", "", "only run checks of this layer: bronze or silver")
	checkCmd.Flags().String("category", "", "only run checks of this category")
	checkCmd.Flags().Bool("details", false, "list offending rows of checks with findings")
	checkCmd.Flags().Bool("list", false, "list the checks without running them")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()

	filter, err := checkFilter(cmd)
	if err != nil {
		return err
	}

	std, err := standardize.New(a.cfg.Standardize.Aliases)
	if err != nil {
		return err
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, c := range quality.NewEngine(nil, std, a.logger).Checks(filter) {
			fmt.Fprintf(out, "%-36s %-8s %-8s %s\n", c.ID, c.Layer, c.Severity, c.Description)
		}
		return nil
	}

	ctx := cmd.Context()
	wh, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer wh.Close()

	engine := quality.NewEngine(wh, std, a.logger,
		quality.WithParallelism(a.cfg.Quality.Parallelism),
		quality.WithDetailLimit(a.cfg.Quality.DetailLimit),
		quality.WithMetrics(a.metrics),
	)
	if filter.Category != "" && !contains(engine.Categories(), filter.Category) {
		return errors.ValidationError("category", filter.Category, "unknown check category").
			WithSuggestions("Known categories: " + strings.Join(engine.Categories(), ", "))
	}

	spinner := ui.NewSpinner(out, fmt.Sprintf("Running %d checks", len(engine.Checks(filter))))
	spinner.Start()
	report, err := engine.Run(ctx, filter)
	spinner.Stop(err == nil, "Checks finished")
	if err != nil {
		return err
	}

	ui.QualityTable(out, report)
	fmt.Fprintln(out)
	ui.CategoryTable(out, report)
	if filter.Details {
		ui.QualityDetails(out, report)
	}
	a.flushMetrics()

	if err := report.Err(); err != nil {
		return err
	}
	ui.ShowSuccess(out, fmt.Sprintf("%d checks passed, %d warnings", report.Passed(), len(report.Warnings())))
	return nil
}

func checkFilter(cmd *cobra.Command) (quality.Filter, error) {
	layer, _ := cmd.Flags().GetString("layer")
	category, _ := cmd.Flags().GetString("category")
	details, _ := cmd.Flags().GetBool("details")

	f := quality.Filter{Layer: quality.Layer(strings.ToLower(layer)), Category: category, Details: details}
	switch f.Layer {
	case "", quality.Bronze, quality.Silver:
		return f, nil
	default:
		return f, errors.ValidationError("layer", layer, "must be bronze or silver")
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
