package warehouse

import (
	"fmt"
	"strings"
	"time"

	"salesdw/pkg/errors"
)

// Dialect captures the SQL differences between the supported warehouses.
type Dialect string

const (
	Snowflake Dialect = "snowflake"
	Postgres  Dialect = "postgres"
	DuckDB    Dialect = "duckdb"
	SQLite    Dialect = "sqlite"
)

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case Snowflake, Postgres, DuckDB, SQLite:
		return d, nil
	case "postgresql", "pq":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupportedDriver, fmt.Sprintf("Unsupported warehouse driver %q", driver)).
			WithContext("driver", driver).
			WithSuggestions("Use one of: snowflake, postgres, duckdb, sqlite")
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite3"
	default:
		return string(d)
	}
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Table qualifies a table with its layer schema.
func (d Dialect) Table(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

// ClearTable empties a table inside the current transaction.
func (d Dialect) ClearTable(qualified string) string {
	switch d {
	case Postgres, DuckDB:
		return "TRUNCATE TABLE " + qualified
	default:
		// Snowflake TRUNCATE drops load metadata and SQLite has none.
		return "DELETE FROM " + qualified
	}
}

// CreateSchema returns the statement creating a layer schema. SQLite attaches
// one database file per schema instead, so it returns "".
func (d Dialect) CreateSchema(schema string) string {
	if d == SQLite {
		return ""
	}
	return "CREATE SCHEMA IF NOT EXISTS " + schema
}

// DropView returns a statement that drops a view if it exists.
func (d Dialect) DropView(qualified string) string {
	return "DROP VIEW IF EXISTS " + qualified
}

// Column types used by the layer DDL.
func (d Dialect) Text() string {
	if d == Snowflake {
		return "NVARCHAR(50)"
	}
	return "VARCHAR(50)"
}

func (d Dialect) Int() string { return "INT" }

func (d Dialect) Date() string { return "DATE" }

func (d Dialect) Timestamp() string {
	switch d {
	case Snowflake:
		return "TIMESTAMP_NTZ"
	case SQLite:
		return "DATETIME"
	default:
		return "TIMESTAMP"
	}
}

// BindDate converts a calendar date into the value bound for a DATE column.
// SQLite stores dates as ISO text so string comparison matches date order.
func (d Dialect) BindDate(t time.Time) interface{} {
	if d == SQLite {
		return t.Format("2006-01-02")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BindTimestamp converts a point in time into the value bound for a
// TIMESTAMP column.
func (d Dialect) BindTimestamp(t time.Time) interface{} {
	if d == SQLite {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return t.UTC()
}
