package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/lock"
	"salesdw/internal/testutil"
	"salesdw/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	source := testutil.WriteExtracts(t, testutil.SampleExtracts)
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`warehouse:
  driver: sqlite
  path: %s
ingest:
  source_dir: %s
lock:
  path: %s
logging:
  level: error
`, filepath.Join(dir, "warehouse.db"), source, filepath.Join(dir, "salesdw.lock"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"transform", "check", "ingest", "schema", "setup", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "salesdw version dev")
}

func TestInvalidCommand(t *testing.T) {
	_, err := execute(t, "invalid-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestPipelineCommands(t *testing.T) {
	cfg := writeConfig(t)
	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append([]string{"--config", cfg, "--no-color"}, args...)...)
		require.NoError(t, err, out)
		return out
	}

	assert.Contains(t, run("schema", "apply"), "Schema applied")
	assert.Contains(t, run("ingest"), "Loaded 6 tables (38 rows)")
	assert.Contains(t, run("schema", "status"), "crm_sales_details")

	out := run("transform", "--yes", "--mode", "table")
	assert.Contains(t, out, "[6/6] erp_px_cat_g1v2")
	assert.Contains(t, out, "Loaded 6 tables")

	assert.Contains(t, run("transform", "--yes", "--mode", "batch"), "Loaded 6 tables")

	out = run("check", "--list=false", "--layer", "silver", "--category", "", "--details")
	assert.Contains(t, out, "parity_cat_row_count")
	assert.Contains(t, out, "checks passed")

	out = run("check", "--list=false", "--layer", "bronze", "--category", "", "--details=false")
	assert.Contains(t, out, "bronze_cst_id_duplicates")
	assert.Contains(t, out, "WARN")
}

func TestCheckRejectsBadFilters(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "--no-color", "check", "--list=false", "--layer", "gold", "--category", "")
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))

	_, err = execute(t, "--config", cfg, "--no-color", "check", "--list=false", "--layer", "", "--category", "nope")
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
}

func TestCheckList(t *testing.T) {
	cfg := writeConfig(t)
	out, err := execute(t, "--config", cfg, "--no-color", "check", "--list", "--layer", "silver", "--category", "row_count_parity")
	require.NoError(t, err)
	assert.Contains(t, out, "parity_cat_row_count")
	assert.NotContains(t, out, "silver_cst_id_null")
}

func TestTransformHeldLock(t *testing.T) {
	cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "--no-color", "schema", "apply")
	require.NoError(t, err)

	held := filepath.Join(t.TempDir(), "held.lock")
	t.Setenv("SALESDW_LOCK_PATH", held)
	lk, err := lock.Acquire(held)
	require.NoError(t, err)
	defer lk.Release()

	_, err = execute(t, "--config", cfg, "--no-color", "transform", "--yes", "--mode", "table")
	assert.Equal(t, errors.ErrCodeLockHeld, errors.GetErrorCode(err))
	assert.Equal(t, 5, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrCodeBatchPartial, 2},
		{errors.ErrCodeBatchFailed, 3},
		{errors.ErrCodeViolationsFound, 4},
		{errors.ErrCodeCheckFailed, 4},
		{errors.ErrCodeLockHeld, 5},
		{errors.ErrCodeConfigInvalid, 6},
		{errors.ErrCodeSQLExecution, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(errors.New(tt.code, "x")), tt.code)
	}
	assert.Equal(t, 1, exitCode(io.EOF))
}

func TestBuildConfig(t *testing.T) {
	cfg, err := buildConfig("postgres", connectionAnswers{
		Host: "db", Port: "5433", Username: "etl", Password: "secret",
		Database: "dw", SSLMode: "disable", SourceDir: "extracts",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Warehouse.Driver)
	assert.Equal(t, 5433, cfg.Warehouse.Port)
	assert.Empty(t, cfg.Warehouse.Password)
	assert.Equal(t, "extracts", cfg.Ingest.SourceDir)

	_, err = buildConfig("postgres", connectionAnswers{Port: "abc"})
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))

	cfg, err = buildConfig("duckdb", connectionAnswers{Path: "dw.duckdb", SourceDir: "datasets"})
	require.NoError(t, err)
	assert.Equal(t, "dw.duckdb", cfg.Warehouse.Path)

	assert.Len(t, connectionQuestions("snowflake"), 7)
	assert.Len(t, connectionQuestions("sqlite"), 2)
}

func TestBindFlagsOverridesOnlyWhenSet(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	flags.String("mode", "", "")
	require.NoError(t, flags.Parse([]string{"--mode", "batch"}))

	v := viper.New()
	v.SetDefault("logging.level", "info")
	v.SetDefault("pipeline.transaction_mode", "table")
	require.NoError(t, bindFlags(v, flags))

	assert.Equal(t, "batch", v.GetString("pipeline.transaction_mode"))
	assert.Equal(t, "info", v.GetString("logging.level"))
}
