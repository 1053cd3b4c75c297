// Package lifecycle derives product keys and validity ranges.
package lifecycle

import (
	"database/sql"
	"sort"
	"strings"
	"time"
)

const (
	categoryWidth = 5
	// keyOffset is where the product key starts in the raw key, after the
	// category prefix and its separator.
	keyOffset = categoryWidth + 1
)

// SplitKey splits a raw key such as "CO-RF-FR-R92B-58" into the category id
// "CO_RF" and the product key "FR-R92B-58". Keys too short to carry a
// product part yield an empty product key; they are reported by the quality
// checks rather than repaired.
func SplitKey(raw string) (categoryID, productKey string) {
	prefix := raw
	if len(prefix) > categoryWidth {
		prefix = prefix[:categoryWidth]
	}
	categoryID = strings.ReplaceAll(prefix, "-", "_")

	if len(raw) > keyOffset {
		productKey = raw[keyOffset:]
	}
	return categoryID, productKey
}

// Version is one row of a product's history.
type Version struct {
	ID    int64
	Key   string
	Start sql.NullTime
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndDates returns one end date per version, in input order. Versions are
// grouped by Key and ordered by start date, then ID. A version ends the day
// before the earliest strictly later start in its group; the latest versions
// get NULL. Versions sharing a start date therefore share an end date, and a
// NULL start sorts before every date.
func EndDates(versions []Version) []sql.NullTime {
	ends := make([]sql.NullTime, len(versions))

	groups := make(map[string][]int)
	for i, v := range versions {
		groups[v.Key] = append(groups[v.Key], i)
	}

	for _, idx := range groups {
		sort.SliceStable(idx, func(a, b int) bool {
			return less(versions[idx[a]], versions[idx[b]])
		})

		for pos, i := range idx {
			start := versions[i].Start
			for _, j := range idx[pos+1:] {
				next := versions[j].Start
				if !next.Valid {
					continue
				}
				if !start.Valid || Day(next.Time).After(Day(start.Time)) {
					ends[i] = sql.NullTime{Time: Day(next.Time).AddDate(0, 0, -1), Valid: true}
					break
				}
			}
		}
	}

	return ends
}

func less(a, b Version) bool {
	switch {
	case !a.Start.Valid && b.Start.Valid:
		return true
	case a.Start.Valid && !b.Start.Valid:
		return false
	case a.Start.Valid && b.Start.Valid && !Day(a.Start.Time).Equal(Day(b.Start.Time)):
		return Day(a.Start.Time).Before(Day(b.Start.Time))
	default:
		return a.ID < b.ID
	}
}
