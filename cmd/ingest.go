package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdw/internal/ingest"
	"salesdw/internal/lock"
	"salesdw/internal/ui"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reload bronze from the CRM and ERP extracts",
	Long: `Reads the six CSV extracts below the source directory and replaces each bronze
table with their contents. Every extract is parsed before anything is written.
Cells that do not parse are loaded as NULL and reported as warnings.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("source", "", "directory holding source_crm/ and source_erp/")
	ingestCmd.Flags().StringSlice("table", nil, "only reload these bronze tables")
	ingestCmd.Flags().Bool("warnings", false, "print every parse warning")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()
	tables, _ := cmd.Flags().GetStringSlice("table")

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

	loader := ingest.NewLoader(wh, a.cfg.Ingest.SourceDir, a.cfg.Pipeline.BatchSize, a.logger)
	ui.ShowHeader(out, fmt.Sprintf("Ingest %s -> %s", a.cfg.Ingest.SourceDir, a.cfg.Layers.Bronze))

	var loads []ingest.TableLoad
	if len(tables) == 0 {
		loads, err = loader.Load(ctx)
	} else {
		for _, name := range tables {
			var load ingest.TableLoad
			load, err = loader.LoadTable(ctx, name)
			if err != nil {
				break
			}
			loads = append(loads, load)
		}
	}

	if len(loads) > 0 {
		ui.IngestTable(out, loads)
	}
	if all, _ := cmd.Flags().GetBool("warnings"); all {
		for _, l := range loads {
			for _, w := range l.Warnings {
				ui.ShowWarning(out, fmt.Sprintf("%s row %d %s: %s", l.Table, w.Row, w.Column, w.Message))
			}
		}
	}
	if err != nil {
		return err
	}

	var rows int64
	for _, l := range loads {
		rows += l.Rows
	}
	ui.ShowSuccess(out, fmt.Sprintf("Loaded %d tables (%d rows)", len(loads), rows))
	return nil
}
