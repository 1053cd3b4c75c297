package silver

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"salesdw/internal/lifecycle"
	"salesdw/internal/reconcile"
	"salesdw/internal/warehouse"
	"salesdw/pkg/models"
)

type customerRow struct {
	ID        sql.NullInt64
	Key       sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
	Marital   sql.NullString
	Gender    sql.NullString
	Created   sql.NullTime
}

// loadCustomers keeps one row per customer id, the most recently created,
// and drops rows without an id.
func (t *Transformer) loadCustomers(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.CRMCustInfo); err != nil {
		return 0, err
	}

	var rows []customerRow
	err := t.query(ctx, q, models.CRMCustInfo, func(r *sql.Rows) error {
		var c customerRow
		if err := r.Scan(&c.ID, &c.Key, &c.FirstName, &c.LastName, &c.Marital, &c.Gender, &c.Created); err != nil {
			return err
		}
		if c.ID.Valid {
			rows = append(rows, c)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	latest := latestCustomers(rows)

	marital := t.std.MaritalStatus()
	gender := t.std.GenderCRM()
	values := make([][]interface{}, 0, len(latest))
	for _, c := range latest {
		values = append(values, []interface{}{
			c.ID.Int64,
			nullString(c.Key),
			trimmed(c.FirstName),
			trimmed(c.LastName),
			marital.MapNull(c.Marital),
			gender.MapNull(c.Gender),
			t.date(c.Created),
		})
	}
	return t.insert(ctx, q, models.CRMCustInfo, values)
}

// latestCustomers returns one row per id ordered by id. The newest created
// date wins; remaining ties go to the smallest key, then names.
func latestCustomers(rows []customerRow) []customerRow {
	sorted := append([]customerRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ID.Int64 != b.ID.Int64 {
			return a.ID.Int64 < b.ID.Int64
		}
		if a.Created.Valid != b.Created.Valid {
			return a.Created.Valid
		}
		if a.Created.Valid && !a.Created.Time.Equal(b.Created.Time) {
			return a.Created.Time.After(b.Created.Time)
		}
		for _, pair := range [][2]sql.NullString{
			{a.Key, b.Key}, {a.FirstName, b.FirstName}, {a.LastName, b.LastName},
			{a.Marital, b.Marital}, {a.Gender, b.Gender},
		} {
			if c := compareNull(pair[0], pair[1]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	var out []customerRow
	for i, c := range sorted {
		if i == 0 || c.ID.Int64 != sorted[i-1].ID.Int64 {
			out = append(out, c)
		}
	}
	return out
}

func compareNull(a, b sql.NullString) int {
	switch {
	case a.Valid == b.Valid:
		return strings.Compare(a.String, b.String)
	case !a.Valid:
		return -1
	default:
		return 1
	}
}

type productRow struct {
	ID    sql.NullInt64
	Key   sql.NullString
	Name  sql.NullString
	Cost  sql.NullInt64
	Line  sql.NullString
	Start sql.NullTime
	End   sql.NullTime
}

// loadProducts splits the category id off the key, coalesces cost to zero
// and derives each version's end date from its successor.
func (t *Transformer) loadProducts(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.CRMPrdInfo); err != nil {
		return 0, err
	}

	var rows []productRow
	err := t.query(ctx, q, models.CRMPrdInfo, func(r *sql.Rows) error {
		var p productRow
		if err := r.Scan(&p.ID, &p.Key, &p.Name, &p.Cost, &p.Line, &p.Start, &p.End); err != nil {
			return err
		}
		rows = append(rows, p)
		return nil
	})
	if err != nil {
		return 0, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ID.Int64 != rows[j].ID.Int64 {
			return rows[i].ID.Int64 < rows[j].ID.Int64
		}
		return compareNull(rows[i].Key, rows[j].Key) < 0
	})

	versions := make([]lifecycle.Version, len(rows))
	for i, p := range rows {
		versions[i] = lifecycle.Version{ID: p.ID.Int64, Key: p.Key.String, Start: p.Start}
	}
	ends := lifecycle.EndDates(versions)

	line := t.std.ProductLine()
	values := make([][]interface{}, 0, len(rows))
	for i, p := range rows {
		categoryID, productKey := lifecycle.SplitKey(p.Key.String)

		var cost int64
		if p.Cost.Valid {
			cost = p.Cost.Int64
		}

		start := p.Start
		if start.Valid {
			start.Time = lifecycle.Day(start.Time)
		}

		values = append(values, []interface{}{
			nullInt(p.ID),
			categoryID,
			productKey,
			nullString(p.Name),
			cost,
			line.MapNull(p.Line),
			t.date(start),
			t.date(ends[i]),
		})
	}
	return t.insert(ctx, q, models.CRMPrdInfo, values)
}

type salesRow struct {
	OrderNum   sql.NullString
	ProductKey sql.NullString
	CustomerID sql.NullInt64
	OrderDate  sql.NullInt64
	ShipDate   sql.NullInt64
	DueDate    sql.NullInt64
	Sales      sql.NullInt64
	Quantity   sql.NullInt64
	Price      sql.NullInt64
}

// loadSales converts the integer dates and reconciles amount and price.
func (t *Transformer) loadSales(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.CRMSalesDetails); err != nil {
		return 0, err
	}

	var rows []salesRow
	err := t.query(ctx, q, models.CRMSalesDetails, func(r *sql.Rows) error {
		var s salesRow
		if err := r.Scan(&s.OrderNum, &s.ProductKey, &s.CustomerID, &s.OrderDate, &s.ShipDate, &s.DueDate,
			&s.Sales, &s.Quantity, &s.Price); err != nil {
			return err
		}
		rows = append(rows, s)
		return nil
	})
	if err != nil {
		return 0, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := compareNull(rows[i].OrderNum, rows[j].OrderNum); c != 0 {
			return c < 0
		}
		return compareNull(rows[i].ProductKey, rows[j].ProductKey) < 0
	})

	values := make([][]interface{}, 0, len(rows))
	for _, s := range rows {
		line := reconcile.Reconcile(reconcile.Line{Sales: s.Sales, Quantity: s.Quantity, Price: s.Price})
		values = append(values, []interface{}{
			nullString(s.OrderNum),
			nullString(s.ProductKey),
			nullInt(s.CustomerID),
			t.date(DateFromInt(s.OrderDate)),
			t.date(DateFromInt(s.ShipDate)),
			t.date(DateFromInt(s.DueDate)),
			nullInt(line.Sales),
			nullInt(line.Quantity),
			nullInt(line.Price),
		})
	}
	return t.insert(ctx, q, models.CRMSalesDetails, values)
}
