package warehouse

import (
	"context"
	"fmt"
	"strings"

	"salesdw/pkg/errors"
)

// DefaultBatchSize is used when a caller passes a non-positive batch size.
const DefaultBatchSize = 500

// Inserter writes rows into one table with multi-row INSERT statements.
type Inserter struct {
	dialect   Dialect
	table     string
	columns   []string
	batchSize int
}

// NewInserter prepares an inserter for the qualified table.
func NewInserter(dialect Dialect, table string, columns []string, batchSize int) *Inserter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	// Keep every statement under the SQLite bind limit.
	if limit := 32000 / len(columns); batchSize > limit {
		batchSize = limit
	}
	return &Inserter{
		dialect:   dialect,
		table:     table,
		columns:   columns,
		batchSize: batchSize,
	}
}

// Insert writes rows in order and returns how many were written. Every row
// must have one value per column.
func (in *Inserter) Insert(ctx context.Context, q Querier, rows [][]interface{}) (int64, error) {
	var written int64
	for start := 0; start < len(rows); start += in.batchSize {
		end := start + in.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]interface{}, 0, len(chunk)*len(in.columns))
		for i, row := range chunk {
			if len(row) != len(in.columns) {
				return written, errors.New(errors.ErrCodeInternal,
					fmt.Sprintf("row %d has %d values, want %d", start+i, len(row), len(in.columns))).
					WithContext("table", in.table)
			}
			args = append(args, row...)
		}

		query := in.statement(len(chunk))
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return written, errors.SQLError(fmt.Sprintf("Failed to insert into %s", in.table), query, err).
				WithContext("table", in.table).
				WithContext("offset", start).
				WithContext("sqlstate", SQLState(err))
		}
		written += int64(len(chunk))
	}
	return written, nil
}

func (in *Inserter) statement(rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", in.table, strings.Join(in.columns, ", "))

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range in.columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(in.dialect.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
