package silver

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"salesdw/internal/lifecycle"
	"salesdw/internal/warehouse"
	"salesdw/pkg/models"
)

// legacyPrefix marks ERP customer ids carried over from an older system.
const legacyPrefix = "NAS"

type erpCustomerRow struct {
	ID        sql.NullString
	BirthDate sql.NullTime
	Gender    sql.NullString
}

// loadERPCustomers strips the legacy id prefix, drops birth dates in the
// future and standardizes gender.
func (t *Transformer) loadERPCustomers(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.ERPCustAZ12); err != nil {
		return 0, err
	}

	var rows []erpCustomerRow
	err := t.query(ctx, q, models.ERPCustAZ12, func(r *sql.Rows) error {
		var c erpCustomerRow
		if err := r.Scan(&c.ID, &c.BirthDate, &c.Gender); err != nil {
			return err
		}
		rows = append(rows, c)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return compareNull(rows[i].ID, rows[j].ID) < 0 })

	today := lifecycle.Day(t.now())
	gender := t.std.GenderERP()
	values := make([][]interface{}, 0, len(rows))
	for _, c := range rows {
		id := c.ID
		if id.Valid && strings.HasPrefix(id.String, legacyPrefix) {
			id.String = strings.TrimPrefix(id.String, legacyPrefix)
		}

		birth := c.BirthDate
		if birth.Valid {
			birth.Time = lifecycle.Day(birth.Time)
			if birth.Time.After(today) {
				birth = sql.NullTime{}
			}
		}

		values = append(values, []interface{}{
			nullString(id),
			t.date(birth),
			gender.MapNull(c.Gender),
		})
	}
	return t.insert(ctx, q, models.ERPCustAZ12, values)
}

type locationRow struct {
	ID      sql.NullString
	Country sql.NullString
}

// loadLocations removes hyphens from ids and standardizes countries.
func (t *Transformer) loadLocations(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.ERPLocA101); err != nil {
		return 0, err
	}

	var rows []locationRow
	err := t.query(ctx, q, models.ERPLocA101, func(r *sql.Rows) error {
		var l locationRow
		if err := r.Scan(&l.ID, &l.Country); err != nil {
			return err
		}
		rows = append(rows, l)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return compareNull(rows[i].ID, rows[j].ID) < 0 })

	country := t.std.Country()
	values := make([][]interface{}, 0, len(rows))
	for _, l := range rows {
		id := l.ID
		if id.Valid {
			id.String = strings.ReplaceAll(id.String, "-", "")
		}
		values = append(values, []interface{}{
			nullString(id),
			country.MapNull(l.Country),
		})
	}
	return t.insert(ctx, q, models.ERPLocA101, values)
}

type categoryRow struct {
	ID          sql.NullString
	Category    sql.NullString
	Subcategory sql.NullString
	Maintenance sql.NullString
}

// loadCategories copies the product categories unchanged.
func (t *Transformer) loadCategories(ctx context.Context, q warehouse.Querier) (int64, error) {
	if err := t.clear(ctx, q, models.ERPPxCatG1V2); err != nil {
		return 0, err
	}

	var rows []categoryRow
	err := t.query(ctx, q, models.ERPPxCatG1V2, func(r *sql.Rows) error {
		var c categoryRow
		if err := r.Scan(&c.ID, &c.Category, &c.Subcategory, &c.Maintenance); err != nil {
			return err
		}
		rows = append(rows, c)
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return compareNull(rows[i].ID, rows[j].ID) < 0 })

	values := make([][]interface{}, 0, len(rows))
	for _, c := range rows {
		values = append(values, []interface{}{
			nullString(c.ID),
			nullString(c.Category),
			nullString(c.Subcategory),
			nullString(c.Maintenance),
		})
	}
	return t.insert(ctx, q, models.ERPPxCatG1V2, values)
}
