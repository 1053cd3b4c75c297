package schema

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

var layers = models.Layers{Bronze: "bronze", Silver: "silver", Gold: "gold"}

func newTestService(t *testing.T, d warehouse.Dialect) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wh := warehouse.NewWithDB(db, d, layers, zerolog.Nop())
	return NewService(wh, zerolog.Nop()), mock
}

func TestCreateTable(t *testing.T) {
	cols := []models.Column{{Name: "id", Type: models.Int}, {Name: "name", Type: models.Text}, {Name: "at", Type: models.Timestamp}}

	assert.Equal(t, "CREATE TABLE IF NOT EXISTS bronze.t (\n\tid INT,\n\tname NVARCHAR(50),\n\tat TIMESTAMP_NTZ\n)",
		CreateTable(warehouse.Snowflake, "bronze.t", cols))
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS bronze.t (\n\tid INT,\n\tname VARCHAR(50),\n\tat DATETIME\n)",
		CreateTable(warehouse.SQLite, "bronze.t", cols))
}

func TestTableStatements(t *testing.T) {
	pg := TableStatements(warehouse.Postgres, layers)
	require.Len(t, pg, 2+2*len(models.Tables))
	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS bronze", pg[0])
	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS silver", pg[1])
	assert.True(t, strings.HasPrefix(pg[2], "CREATE TABLE IF NOT EXISTS bronze.crm_cust_info"))
	assert.True(t, strings.HasPrefix(pg[len(pg)-1], "CREATE TABLE IF NOT EXISTS silver.erp_px_cat_g1v2"))

	lite := TableStatements(warehouse.SQLite, layers)
	assert.Len(t, lite, 2*len(models.Tables))
	for _, stmt := range lite {
		assert.NotContains(t, stmt, "CREATE SCHEMA")
	}
}

func TestSilverProductTableCarriesDerivedColumns(t *testing.T) {
	def, ok := models.LookupTable(models.CRMPrdInfo)
	require.True(t, ok)
	stmt := CreateTable(warehouse.DuckDB, "silver.crm_prd_info", def.Silver)
	assert.Contains(t, stmt, "cat_id VARCHAR(50)")
	assert.Contains(t, stmt, "prd_end_dt DATE")
	assert.NotContains(t, stmt, "dwh_")
}

func TestViewStatements(t *testing.T) {
	stmts, err := ViewStatements(warehouse.Postgres, models.Layers{Bronze: "raw", Silver: "clean", Gold: "mart"})
	require.NoError(t, err)
	require.Len(t, stmts, 1+2*len(Views))

	assert.Equal(t, "CREATE SCHEMA IF NOT EXISTS mart", stmts[0])
	assert.Equal(t, "DROP VIEW IF EXISTS mart.fact_sales", stmts[1])
	assert.Equal(t, "DROP VIEW IF EXISTS mart.dim_customers", stmts[3])

	customers := stmts[4]
	assert.True(t, strings.HasPrefix(customers, "CREATE VIEW mart.dim_customers AS"))
	assert.Contains(t, customers, "FROM clean.crm_cust_info ci")
	assert.Contains(t, customers, "ROW_NUMBER() OVER (ORDER BY ci.cst_id) AS customer_key")

	products := stmts[5]
	assert.Contains(t, products, "WHERE pn.prd_end_dt IS NULL")

	facts := stmts[6]
	assert.Contains(t, facts, "LEFT JOIN mart.dim_products pr")
	assert.NotContains(t, facts, "{{")
}

func TestPlanSkipsViewsOnSQLite(t *testing.T) {
	svc, _ := newTestService(t, warehouse.SQLite)
	stmts, err := svc.Plan(Options{Views: true})
	require.NoError(t, err)
	assert.Len(t, stmts, 2*len(models.Tables))

	svc, _ = newTestService(t, warehouse.DuckDB)
	stmts, err = svc.Plan(Options{Views: true})
	require.NoError(t, err)
	assert.Len(t, stmts, 2+2*len(models.Tables)+1+2*len(Views))
}

func TestApply(t *testing.T) {
	svc, mock := newTestService(t, warehouse.SQLite)

	mock.ExpectBegin()
	for range TableStatements(warehouse.SQLite, layers) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, svc.Apply(context.Background(), Options{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBack(t *testing.T) {
	svc, mock := newTestService(t, warehouse.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS bronze")).
		WillReturnError(fmt.Errorf("permission denied for database dw"))
	mock.ExpectRollback()

	err := svc.Apply(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLPermission, errors.GetErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatus(t *testing.T) {
	svc, mock := newTestService(t, warehouse.SQLite)

	for _, layer := range []string{"bronze", "silver"} {
		for i, table := range models.Tables {
			query := regexp.QuoteMeta(fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", layer, table.Name))
			if layer == "silver" && i == len(models.Tables)-1 {
				mock.ExpectQuery(query).WillReturnError(fmt.Errorf("no such table: silver.%s", table.Name))
				continue
			}
			mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(i + 1))
		}
	}

	states, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2*len(models.Tables))

	assert.Equal(t, TableState{Layer: "bronze", Table: models.CRMCustInfo, Exists: true, Rows: 1}, states[0])
	last := states[len(states)-1]
	assert.Equal(t, models.ERPPxCatG1V2, last.Table)
	assert.False(t, last.Exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusPropagatesOtherErrors(t *testing.T) {
	svc, mock := newTestService(t, warehouse.SQLite)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(fmt.Errorf("disk I/O error"))

	_, err := svc.Status(context.Background())
	assert.Error(t, err)
}
