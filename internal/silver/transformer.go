// Package silver rebuilds the cleansed silver tables from bronze.
package silver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"salesdw/internal/standardize"
	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// Step clears one silver table and reloads it from bronze through q, which
// is normally a transaction. It returns the number of rows written.
type Step struct {
	Table string
	Load  func(ctx context.Context, q warehouse.Querier) (int64, error)
}

// Transformer holds what every table load needs.
type Transformer struct {
	wh        *warehouse.Service
	std       *standardize.Standardizer
	batchSize int
	now       func() time.Time
	logger    zerolog.Logger
}

// Option customizes a Transformer.
type Option func(*Transformer)

// WithClock overrides the clock used to reject future birth dates.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) { t.now = now }
}

// WithBatchSize sets the rows per INSERT statement.
func WithBatchSize(n int) Option {
	return func(t *Transformer) { t.batchSize = n }
}

// NewTransformer creates a transformer writing through wh.
func NewTransformer(wh *warehouse.Service, std *standardize.Standardizer, logger zerolog.Logger, opts ...Option) *Transformer {
	if std == nil {
		std = standardize.Default()
	}
	t := &Transformer{
		wh:        wh,
		std:       std,
		batchSize: warehouse.DefaultBatchSize,
		now:       time.Now,
		logger:    logger.With().Str("component", "silver").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Steps returns the six table loads in their fixed order.
func (t *Transformer) Steps() []Step {
	return []Step{
		{Table: models.CRMCustInfo, Load: t.loadCustomers},
		{Table: models.CRMPrdInfo, Load: t.loadProducts},
		{Table: models.CRMSalesDetails, Load: t.loadSales},
		{Table: models.ERPCustAZ12, Load: t.loadERPCustomers},
		{Table: models.ERPLocA101, Load: t.loadLocations},
		{Table: models.ERPPxCatG1V2, Load: t.loadCategories},
	}
}

// clear empties the silver table.
func (t *Transformer) clear(ctx context.Context, q warehouse.Querier, table string) error {
	stmt := t.wh.Dialect().ClearTable(t.wh.Silver(table))
	if _, err := q.ExecContext(ctx, stmt); err != nil {
		return errors.SQLError(fmt.Sprintf("Failed to clear %s", t.wh.Silver(table)), stmt, err).
			WithContext("table", table).
			WithContext("sqlstate", warehouse.SQLState(err))
	}
	return nil
}

// selectBronze returns the query reading every bronze column of table.
func (t *Transformer) selectBronze(table string) string {
	def, _ := models.LookupTable(table)
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(models.ColumnNames(def.Bronze), ", "), t.wh.Bronze(table))
}

// query runs a bronze read and hands every row to scan. Rows are closed
// before it returns so the same transaction can be written next.
func (t *Transformer) query(ctx context.Context, q warehouse.Querier, table string, scan func(*sql.Rows) error) error {
	query := t.selectBronze(table)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return errors.SQLError(fmt.Sprintf("Failed to read %s", t.wh.Bronze(table)), query, err).
			WithContext("table", table).
			WithContext("sqlstate", warehouse.SQLState(err))
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, fmt.Sprintf("Failed to scan %s", t.wh.Bronze(table))).
				WithContext("table", table)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.SQLError(fmt.Sprintf("Failed to read %s", t.wh.Bronze(table)), query, err).
			WithContext("table", table)
	}
	return nil
}

// insert writes values into the silver table.
func (t *Transformer) insert(ctx context.Context, q warehouse.Querier, table string, values [][]interface{}) (int64, error) {
	def, _ := models.LookupTable(table)
	in := warehouse.NewInserter(t.wh.Dialect(), t.wh.Silver(table), models.ColumnNames(def.Silver), t.batchSize)
	n, err := in.Insert(ctx, q, values)
	if err != nil {
		return n, err
	}
	t.logger.Debug().Str("table", table).Int64("rows", n).Msg("silver rows written")
	return n, nil
}

// date binds a nullable date for the current dialect.
func (t *Transformer) date(v sql.NullTime) interface{} {
	if !v.Valid {
		return nil
	}
	return t.wh.Dialect().BindDate(v.Time)
}

func nullInt(v sql.NullInt64) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func nullString(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func trimmed(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return strings.TrimSpace(v.String)
}
