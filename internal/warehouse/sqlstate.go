package warehouse

import (
	"strconv"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/snowflakedb/gosnowflake"

	"salesdw/pkg/errors"
)

// SQLState extracts the driver's SQLSTATE (or extended result code for
// SQLite) from err. It returns "" when the driver reports none.
func SQLState(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strconv.Itoa(int(sqliteErr.ExtendedCode))
	}

	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		return sfErr.SQLState
	}

	return ""
}
