// Package standardize maps raw categorical codes onto canonical labels.
package standardize

import (
	"database/sql"
	"sort"
	"strings"
)

// NotAvailable is the label for missing or unrecognized codes.
const NotAvailable = "N/A"

// Table names, also used as keys of standardize.aliases in the config.
const (
	MaritalStatus = "marital_status"
	GenderCRM     = "gender_crm"
	GenderERP     = "gender_erp"
	ProductLine   = "product_line"
	Country       = "country"
)

// Policy decides what an unmatched, non-empty code becomes.
type Policy int

const (
	// Fallback maps unmatched codes to NotAvailable.
	Fallback Policy = iota
	// PassThrough keeps unmatched codes, trimmed.
	PassThrough
)

// CodeTable is one code-to-label mapping. Codes are stored trimmed and
// upper-cased.
type CodeTable struct {
	Name   string
	Policy Policy
	codes  map[string]string
}

// NewCodeTable builds a table from raw code/label pairs.
func NewCodeTable(name string, policy Policy, codes map[string]string) *CodeTable {
	t := &CodeTable{Name: name, Policy: policy, codes: make(map[string]string, len(codes))}
	for code, label := range codes {
		t.codes[normalize(code)] = label
	}
	return t
}

// Map returns the canonical label for raw. It never fails: empty input is
// NotAvailable and unmatched input follows the table's policy.
func (t *CodeTable) Map(raw string) string {
	key := normalize(raw)
	if key == "" {
		return NotAvailable
	}
	if label, ok := t.codes[key]; ok {
		return label
	}
	if t.Policy == PassThrough {
		return strings.TrimSpace(raw)
	}
	return NotAvailable
}

// MapNull is Map for a nullable column. NULL maps to NotAvailable.
func (t *CodeTable) MapNull(raw sql.NullString) string {
	if !raw.Valid {
		return NotAvailable
	}
	return t.Map(raw.String)
}

// Labels lists the distinct canonical labels plus NotAvailable, sorted.
func (t *CodeTable) Labels() []string {
	seen := map[string]bool{NotAvailable: true}
	for _, label := range t.codes {
		seen[label] = true
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Codes lists the recognized normalized codes, sorted.
func (t *CodeTable) Codes() []string {
	codes := make([]string, 0, len(t.codes))
	for code := range t.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
