// Package testutil provides a disposable sqlite warehouse for tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"salesdw/internal/common"
	"salesdw/internal/ingest"
	"salesdw/internal/schema"
	"salesdw/internal/warehouse"
	"salesdw/pkg/models"
)

// Layers are the schema names used by test warehouses.
var Layers = models.Layers{Bronze: "bronze", Silver: "silver", Gold: "gold"}

// NewSQLiteWarehouse opens a file-backed sqlite warehouse in a temporary
// directory with the bronze and silver tables created.
func NewSQLiteWarehouse(t *testing.T) *warehouse.Service {
	t.Helper()

	cfg := models.Warehouse{
		Driver:  "sqlite",
		Path:    filepath.Join(t.TempDir(), "warehouse.db"),
		Timeout: "30s",
	}
	wh, err := warehouse.NewService(cfg, Layers, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, wh.Connect(ctx))
	t.Cleanup(func() { _ = wh.Close() })

	require.NoError(t, schema.NewService(wh, zerolog.Nop()).Apply(ctx, schema.Options{}))
	return wh
}

// WriteExtracts writes extracts under a new temporary source directory
// and returns it.
func WriteExtracts(t *testing.T, extracts map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range extracts {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), common.DirPermissionNormal))
		require.NoError(t, os.WriteFile(path, []byte(content), common.FilePermissionNormal))
	}
	return dir
}

// LoadSample ingests SampleExtracts into bronze.
func LoadSample(t *testing.T, wh *warehouse.Service) {
	t.Helper()
	dir := WriteExtracts(t, SampleExtracts)
	_, err := ingest.NewLoader(wh, dir, 0, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
}

// Dump returns every row of a table rendered as text, ordered by all
// columns, so two dumps compare equal exactly when the contents do.
func Dump(t *testing.T, wh *warehouse.Service, qualified string) [][]string {
	t.Helper()

	rows, err := wh.DB().QueryContext(context.Background(), fmt.Sprintf("SELECT * FROM %s", qualified))
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	var out [][]string
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		require.NoError(t, rows.Scan(ptrs...))

		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = render(v)
		}
		out = append(out, record)
	}
	require.NoError(t, rows.Err())

	sortRows(out)
	return out
}

// Column returns one column of a dumped table, looked up by name.
func Column(t *testing.T, wh *warehouse.Service, qualified, column string) []string {
	t.Helper()
	rows, err := wh.DB().QueryContext(context.Background(),
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", column, qualified, column))
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v interface{}
		require.NoError(t, rows.Scan(&v))
		out = append(out, render(v))
	}
	require.NoError(t, rows.Err())
	return out
}

func render(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case sql.RawBytes:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func sortRows(rows [][]string) {
	less := func(a, b []string) bool {
		return strings.Join(a, "\x00") < strings.Join(b, "\x00")
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(rows[j], rows[j-1]); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
