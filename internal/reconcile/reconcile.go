// Package reconcile repairs the amount and unit price of a sales line.
package reconcile

import "database/sql"

// Line is the monetary part of one sales detail row. Any field may be NULL.
type Line struct {
	Sales    sql.NullInt64
	Quantity sql.NullInt64
	Price    sql.NullInt64
}

// Reconcile returns the line with sales and price corrected. Quantity is
// never changed.
//
// Sales becomes quantity*|price| when it is NULL, not positive, or differs
// from that product. A comparison against a NULL product is unknown and does
// not trigger the repair, and a NULL product never replaces an existing value.
// Price becomes sales/quantity (integer division, using the corrected sales)
// when it is NULL or not positive. A derived price is never below one: a
// zero or NULL quantity, or corrected sales that are NULL or not positive,
// yield NULL.
func Reconcile(in Line) Line {
	out := in

	expected := product(in.Quantity, in.Price)
	if needsSales(in.Sales, expected) && expected.Valid {
		out.Sales = expected
	}

	if !in.Price.Valid || in.Price.Int64 <= 0 {
		out.Price = divide(out.Sales, in.Quantity)
	}

	return out
}

func needsSales(sales, expected sql.NullInt64) bool {
	if !sales.Valid || sales.Int64 <= 0 {
		return true
	}
	return expected.Valid && sales.Int64 != expected.Int64
}

func product(quantity, price sql.NullInt64) sql.NullInt64 {
	if !quantity.Valid || !price.Valid {
		return sql.NullInt64{}
	}
	p := price.Int64
	if p < 0 {
		p = -p
	}
	return sql.NullInt64{Int64: quantity.Int64 * p, Valid: true}
}

func divide(sales, quantity sql.NullInt64) sql.NullInt64 {
	if !sales.Valid || !quantity.Valid || sales.Int64 <= 0 || quantity.Int64 <= 0 {
		return sql.NullInt64{}
	}
	price := sales.Int64 / quantity.Int64
	if price <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: price, Valid: true}
}

// Consistent reports whether a line satisfies sales = quantity*|price| with
// every field present and positive sales, the same rule the quality check
// applies to silver.
func Consistent(l Line) bool {
	if !l.Sales.Valid || !l.Quantity.Valid || !l.Price.Valid || l.Sales.Int64 <= 0 || l.Price.Int64 <= 0 {
		return false
	}
	return l.Sales.Int64 == l.Quantity.Int64*l.Price.Int64
}
