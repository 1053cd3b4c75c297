package standardize

import (
	"fmt"
	"sort"
)

func builtin() map[string]*CodeTable {
	return map[string]*CodeTable{
		MaritalStatus: NewCodeTable(MaritalStatus, Fallback, map[string]string{
			"M":       "Married",
			"S":       "Single",
			"MARRIED": "Married",
			"SINGLE":  "Single",
		}),
		GenderCRM: NewCodeTable(GenderCRM, Fallback, map[string]string{
			"F":      "Female",
			"M":      "Male",
			"FEMALE": "Female",
			"MALE":   "Male",
		}),
		GenderERP: NewCodeTable(GenderERP, Fallback, map[string]string{
			"F":      "Female",
			"M":      "Male",
			"FEMALE": "Female",
			"MALE":   "Male",
		}),
		ProductLine: NewCodeTable(ProductLine, Fallback, map[string]string{
			"M": "Mountain",
			"R": "Road",
			"S": "Other Sales",
			"T": "Touring",
		}),
		Country: NewCodeTable(Country, PassThrough, map[string]string{
			"DE":  "Germany",
			"US":  "United States",
			"USA": "United States",
		}),
	}
}

// Standardizer bundles the five code tables used by the silver transform.
type Standardizer struct {
	tables map[string]*CodeTable
}

// New returns the built-in tables extended with aliases, keyed by table
// name. An alias for an unknown table is an error.
func New(aliases map[string]map[string]string) (*Standardizer, error) {
	tables := builtin()
	for name, extra := range aliases {
		t, ok := tables[name]
		if !ok {
			return nil, fmt.Errorf("unknown code table %q", name)
		}
		for code, label := range extra {
			t.codes[normalize(code)] = label
		}
	}
	return &Standardizer{tables: tables}, nil
}

// Default returns the built-in tables only.
func Default() *Standardizer {
	s, _ := New(nil)
	return s
}

// Table returns the named code table, or nil.
func (s *Standardizer) Table(name string) *CodeTable {
	return s.tables[name]
}

// Names lists the table names, sorted.
func (s *Standardizer) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaritalStatus maps CRM marital codes (S, M) to Single and Married.
func (s *Standardizer) MaritalStatus() *CodeTable { return s.tables[MaritalStatus] }

// GenderCRM maps CRM gender codes (F, M) to Female and Male.
func (s *Standardizer) GenderCRM() *CodeTable { return s.tables[GenderCRM] }

// GenderERP maps ERP gender codes and spelled-out values to Female and Male.
func (s *Standardizer) GenderERP() *CodeTable { return s.tables[GenderERP] }

// ProductLine maps product line codes (M, R, S, T) to their names.
func (s *Standardizer) ProductLine() *CodeTable { return s.tables[ProductLine] }

// Country expands DE, US and USA and passes other country names through.
func (s *Standardizer) Country() *CodeTable { return s.tables[Country] }
