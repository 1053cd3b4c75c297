package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// Warning is a non-fatal problem found while parsing an extract.
type Warning struct {
	Row     int
	Column  string
	Message string
}

// Parsed holds the typed rows of one extract in bronze column order. Cells
// are nil, string, int64 or time.Time.
type Parsed struct {
	Table    string
	Encoding string
	Rows     [][]interface{}
	Warnings []Warning
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "1/2/2006"}

// Parse reads a CSV extract for def. Columns are matched to the bronze
// layout by header name, case-insensitively, so extra or reordered source
// columns are tolerated. An empty cell is NULL, and so is a value that does
// not parse as its column type, which is also reported as a warning.
func Parse(data []byte, def models.TableDef) (*Parsed, error) {
	decoded, enc, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceEncoding, "Failed to decode extract").
			WithContext("table", def.Name)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeSourceMalformed, "Extract has no header row").
			WithContext("table", def.Name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceMalformed, "Failed to read header row").
			WithContext("table", def.Name)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}
	index := make([]int, len(def.Bronze))
	for i, col := range def.Bronze {
		pos, ok := positions[col.Name]
		if !ok {
			return nil, errors.New(errors.ErrCodeSourceMalformed, fmt.Sprintf("Extract is missing column %q", col.Name)).
				WithContext("table", def.Name).
				WithContext("header", strings.Join(header, ","))
		}
		index[i] = pos
	}

	out := &Parsed{Table: def.Name, Encoding: enc}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			out.Warnings = append(out.Warnings, Warning{Row: line, Message: err.Error()})
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := make([]interface{}, len(def.Bronze))
		for i, col := range def.Bronze {
			if index[i] >= len(record) {
				continue
			}
			value, ok := convert(record[index[i]], col.Type)
			if !ok {
				out.Warnings = append(out.Warnings, Warning{
					Row:     line,
					Column:  col.Name,
					Message: fmt.Sprintf("cannot read %q as %s; loading NULL", record[index[i]], typeName(col.Type)),
				})
			}
			row[i] = value
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// convert returns the typed cell and whether the raw text was usable.
func convert(raw string, t models.ColumnType) (interface{}, bool) {
	if raw == "" {
		return nil, true
	}
	switch t {
	case models.Int:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case models.Date, models.Timestamp:
		s := strings.TrimSpace(raw)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return nil, false
	default:
		return raw, true
	}
}

func typeName(t models.ColumnType) string {
	switch t {
	case models.Int:
		return "integer"
	case models.Date:
		return "date"
	case models.Timestamp:
		return "timestamp"
	default:
		return "text"
	}
}
