package lifecycle

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) sql.NullTime {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return sql.NullTime{Time: t, Valid: true}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		raw, category, key string
	}{
		{"CO-RF-FR-R92B-58", "CO_RF", "FR-R92B-58"},
		{"AC-HE-HL-U509-R", "AC_HE", "HL-U509-R"},
		{"BI-RB-BK-R93R-62", "BI_RB", "BK-R93R-62"},
		{"CO-RF-X", "CO_RF", "X"},
		{"CO-RF-", "CO_RF", ""},
		{"AB", "AB", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		category, key := SplitKey(tt.raw)
		assert.Equal(t, tt.category, category, tt.raw)
		assert.Equal(t, tt.key, key, tt.raw)
	}
}

func TestEndDatesChain(t *testing.T) {
	versions := []Version{
		{ID: 1, Key: "P1", Start: date("2021-01-01")},
		{ID: 2, Key: "P1", Start: date("2021-06-01")},
		{ID: 3, Key: "P1", Start: date("2022-01-01")},
	}

	ends := EndDates(versions)
	require.Len(t, ends, 3)
	assert.Equal(t, date("2021-05-31"), ends[0])
	assert.Equal(t, date("2021-12-31"), ends[1])
	assert.False(t, ends[2].Valid)
}

func TestEndDatesUnorderedInputAndGroups(t *testing.T) {
	versions := []Version{
		{ID: 10, Key: "B", Start: date("2013-07-01")},
		{ID: 11, Key: "A", Start: date("2012-07-01")},
		{ID: 12, Key: "B", Start: date("2011-07-01")},
		{ID: 13, Key: "A", Start: date("2011-07-01")},
		{ID: 14, Key: "C", Start: date("2013-07-01")},
	}

	ends := EndDates(versions)
	assert.False(t, ends[0].Valid)
	assert.False(t, ends[1].Valid)
	assert.Equal(t, date("2013-06-30"), ends[2])
	assert.Equal(t, date("2012-06-30"), ends[3])
	assert.False(t, ends[4].Valid)
}

func TestEndDatesTiesShareEndDate(t *testing.T) {
	versions := []Version{
		{ID: 2, Key: "P", Start: date("2020-01-01")},
		{ID: 1, Key: "P", Start: date("2020-01-01")},
		{ID: 3, Key: "P", Start: date("2020-03-01")},
	}

	ends := EndDates(versions)
	assert.Equal(t, date("2020-02-29"), ends[0])
	assert.Equal(t, date("2020-02-29"), ends[1])
	assert.False(t, ends[2].Valid)

	for i, end := range ends {
		if end.Valid {
			assert.False(t, end.Time.Before(versions[i].Start.Time), "end before start for %d", versions[i].ID)
		}
	}
}

func TestEndDatesNullStart(t *testing.T) {
	versions := []Version{
		{ID: 1, Key: "P", Start: sql.NullTime{}},
		{ID: 2, Key: "P", Start: date("2020-01-10")},
	}

	ends := EndDates(versions)
	assert.Equal(t, date("2020-01-09"), ends[0])
	assert.False(t, ends[1].Valid)
}

func TestEndDatesIgnoresTimeOfDay(t *testing.T) {
	start := sql.NullTime{Time: time.Date(2020, 1, 1, 23, 0, 0, 0, time.UTC), Valid: true}
	next := sql.NullTime{Time: time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC), Valid: true}

	ends := EndDates([]Version{{ID: 1, Key: "P", Start: start}, {ID: 2, Key: "P", Start: next}})
	assert.False(t, ends[0].Valid)
	assert.False(t, ends[1].Valid)
}

func TestEndDatesEmpty(t *testing.T) {
	assert.Empty(t, EndDates(nil))
}
