package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdw/internal/lock"
	"salesdw/internal/pipeline"
	"salesdw/internal/silver"
	"salesdw/internal/standardize"
	"salesdw/internal/ui"
	"salesdw/pkg/errors"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rebuild the silver layer from bronze",
	Long: `Clears and reloads the six silver tables from bronze in their fixed order.
The batch stops at the first failing table. In table mode every table commits
on its own; in batch mode the six loads commit or roll back together.`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().BoolP("yes", "y", false, "do not ask before replacing silver")
	transformCmd.Flags().String("mode", "", "transaction mode: table or batch")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()

	mode, err := pipeline.ParseMode(a.cfg.Pipeline.TransactionMode)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := ui.Confirm(fmt.Sprintf("Replace every table in %q?", a.cfg.Layers.Silver), false)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInvalidInput, "Confirmation failed").
				WithSuggestions("Pass --yes to run without a terminal")
		}
		if !ok {
			ui.ShowInfo(out, "Transform cancelled")
			return nil
		}
	}

	std, err := standardize.New(a.cfg.Standardize.Aliases)
	if err != nil {
		return err
	}

	lk, err := lock.Acquire(a.cfg.Lock.Path)
	if err != nil {
		return err
	}
	defer lk.Release()

	ctx := cmd.Context()
	wh, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer wh.Close()

	tr := silver.NewTransformer(wh, std, a.logger, silver.WithBatchSize(a.cfg.Pipeline.BatchSize))
	progress := ui.NewBatchProgress(out)
	orch := pipeline.New(wh, tr.Steps(), a.logger,
		pipeline.WithMode(mode),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithObserver(progress.Observe),
	)

	ui.ShowHeader(out, fmt.Sprintf("Transform %s -> %s", a.cfg.Layers.Bronze, a.cfg.Layers.Silver))
	res, runErr := orch.Run(ctx)
	fmt.Fprintln(out)
	ui.BatchTable(out, res)
	a.flushMetrics()

	if runErr != nil {
		return runErr
	}
	ui.ShowSuccess(out, fmt.Sprintf("Loaded %d tables (%d rows)", res.Loaded(), res.Rows()))
	return nil
}
