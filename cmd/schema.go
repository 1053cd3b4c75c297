package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"salesdw/internal/schema"
	"salesdw/internal/ui"
	"salesdw/internal/warehouse"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create and inspect the layer tables",
}

var schemaApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create missing schemas and tables",
	Long: `Creates the bronze and silver schemas and tables that do not exist yet.
Existing tables are left untouched. With --views the gold star-schema views are
replaced as well.`,
	Args: cobra.NoArgs,
	RunE: runSchemaApply,
}

var schemaPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the DDL apply would run",
	Args:  cobra.NoArgs,
	RunE:  runSchemaPlan,
}

var schemaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which layer tables exist and their row counts",
	Args:  cobra.NoArgs,
	RunE:  runSchemaStatus,
}

func init() {
	for _, c := range []*cobra.Command{schemaApplyCmd, schemaPlanCmd} {
		c.Flags().Bool("views", false, "include the gold views")
	}
	schemaCmd.AddCommand(schemaApplyCmd, schemaPlanCmd, schemaStatusCmd)
	rootCmd.AddCommand(schemaCmd)
}

func schemaOptions(cmd *cobra.Command) schema.Options {
	views, _ := cmd.Flags().GetBool("views")
	return schema.Options{Views: views}
}

func runSchemaApply(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	wh, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer wh.Close()

	if err := schema.NewService(wh, a.logger).Apply(ctx, schemaOptions(cmd)); err != nil {
		return err
	}
	ui.ShowSuccess(cmd.OutOrStdout(), "Schema applied")
	return nil
}

func runSchemaPlan(cmd *cobra.Command, args []string) error {
	a := current
	// Planning needs the dialect only, not a connection.
	wh, err := warehouse.NewService(a.cfg.Warehouse, a.cfg.Layers, a.logger)
	if err != nil {
		return err
	}

	stmts, err := schema.NewService(wh, a.logger).Plan(schemaOptions(cmd))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), schema.Script(stmts))
	return nil
}

func runSchemaStatus(cmd *cobra.Command, args []string) error {
	a := current
	ctx := cmd.Context()
	wh, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer wh.Close()

	states, err := schema.NewService(wh, a.logger).Status(ctx)
	if err != nil {
		return err
	}
	ui.SchemaTable(cmd.OutOrStdout(), states)
	return nil
}
