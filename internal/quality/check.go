// Package quality runs read-only validation queries over bronze and silver.
package quality

import (
	"time"
)

// Layer is the medallion layer a check inspects.
type Layer string

const (
	Bronze Layer = "bronze"
	Silver Layer = "silver"
)

// Severity decides whether findings fail a run.
type Severity string

const (
	// SeverityError checks guard a silver invariant and must report zero.
	SeverityError Severity = "error"
	// SeverityWarning checks describe raw or cross-entity data.
	SeverityWarning Severity = "warning"
)

// Kind is the shape of a check's result.
type Kind string

const (
	// KindCount counts violating rows.
	KindCount Kind = "count"
	// KindParity compares the bronze and silver row counts of a table.
	KindParity Kind = "parity"
)

// Check is one validation predicate.
//
// A count check is built from Table and Where unless Query is set; Where and
// Query are text/template sources with the functions bronze, silver (qualify
// a table), codes and labels (quoted lists from a code table) and
// sourceCodes (codes whose label differs from the code itself).
type Check struct {
	ID          string
	Category    string
	Entity      string
	Description string
	Layer       Layer
	Severity    Severity
	Kind        Kind
	Table       string
	Where       string
	Columns     []string // Detail columns; none means no row listing
	Query       string
	Detail      string
}

// Result is the outcome of one check.
type Result struct {
	Check    Check
	Count    int64 // Violations; for parity the absolute count difference
	Bronze   int64 // Parity only
	Silver   int64 // Parity only
	Columns  []string
	Rows     [][]string
	Err      error
	Duration time.Duration
}

// Passed reports whether the check ran and found nothing.
func (r Result) Passed() bool {
	return r.Err == nil && r.Count == 0
}

// Failing reports whether the result fails a run: an error-severity check
// with findings, or any check whose query could not run.
func (r Result) Failing() bool {
	if r.Err != nil {
		return true
	}
	return r.Check.Severity == SeverityError && r.Count > 0
}
