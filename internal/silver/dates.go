package silver

import (
	"database/sql"
	"strconv"
	"time"
)

const (
	minDateInt = 19000101
	maxDateInt = 20500101
)

// DateFromInt converts a YYYYMMDD integer into a date. Zero, values outside
// [19000101, 20500101] and impossible calendar dates become NULL.
func DateFromInt(v sql.NullInt64) sql.NullTime {
	if !v.Valid || v.Int64 < minDateInt || v.Int64 > maxDateInt {
		return sql.NullTime{}
	}
	s := strconv.FormatInt(v.Int64, 10)
	if len(s) != 8 {
		return sql.NullTime{}
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
