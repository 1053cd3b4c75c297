package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"salesdw/internal/ingest"
	"salesdw/internal/pipeline"
	"salesdw/internal/quality"
	"salesdw/internal/schema"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// BatchTable writes the per-table status of a batch.
func BatchTable(w io.Writer, res *pipeline.Result) {
	table := newTable(w, "TABLE", "STATUS", "ROWS", "DURATION")
	for _, t := range res.Tables {
		rows, took := "-", "-"
		if t.Status == pipeline.StatusLoaded {
			rows = strconv.FormatInt(t.Rows, 10)
		}
		if t.Duration > 0 {
			took = formatDuration(t.Duration)
		}
		table.Append([]string{t.Table, tableStatus(t.Status), rows, took})
	}
	table.SetFooter([]string{"", string(res.Outcome), strconv.FormatInt(res.Rows(), 10), formatDuration(res.Duration())})
	table.Render()
}

func tableStatus(s pipeline.TableStatus) string {
	switch s {
	case pipeline.StatusLoaded:
		return color.GreenString(string(s))
	case pipeline.StatusFailed:
		return color.RedString(string(s))
	case pipeline.StatusRolledBack:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

// QualityTable writes one line per check.
func QualityTable(w io.Writer, rep *quality.Report) {
	table := newTable(w, "CHECK", "ENTITY", "LAYER", "SEVERITY", "COUNT", "RESULT")
	for _, r := range rep.Results {
		count := strconv.FormatInt(r.Count, 10)
		if r.Check.Kind == quality.KindParity && r.Err == nil {
			count = fmt.Sprintf("%d (bronze %d, silver %d)", r.Count, r.Bronze, r.Silver)
		}
		if r.Err != nil {
			count = "-"
		}
		table.Append([]string{
			r.Check.ID,
			r.Check.Entity,
			string(r.Check.Layer),
			string(r.Check.Severity),
			count,
			checkStatus(r),
		})
	}
	table.Render()
}

// CategoryTable writes category to total violation count, in the order
// categories first appear in the report.
func CategoryTable(w io.Writer, rep *quality.Report) {
	counts := rep.Counts()
	seen := make(map[string]bool)
	table := newTable(w, "CATEGORY", "VIOLATIONS")
	for _, r := range rep.Results {
		if seen[r.Check.Category] {
			continue
		}
		seen[r.Check.Category] = true
		table.Append([]string{r.Check.Category, strconv.FormatInt(counts[r.Check.Category], 10)})
	}
	table.Render()
}

func checkStatus(r quality.Result) string {
	switch {
	case r.Err != nil:
		return color.RedString("ERROR")
	case r.Failing():
		return color.RedString("FAIL")
	case r.Count > 0:
		return color.YellowString("WARN")
	default:
		return color.GreenString("PASS")
	}
}

// QualityDetails writes the row listings fetched for checks with findings.
func QualityDetails(w io.Writer, rep *quality.Report) {
	for _, r := range rep.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "\n%s %s\n", ColorError(r.Check.ID+":"), r.Err)
			continue
		}
		if len(r.Rows) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s %s (%d of %d)\n", ColorBold(r.Check.ID), r.Check.Description, len(r.Rows), r.Count)
		table := newTable(w, r.Columns...)
		table.AppendBulk(r.Rows)
		table.Render()
	}
}

// IngestTable writes the bronze load summary.
func IngestTable(w io.Writer, loads []ingest.TableLoad) {
	table := newTable(w, "TABLE", "ENCODING", "ROWS", "WARNINGS", "DURATION")
	for _, l := range loads {
		warnings := strconv.Itoa(len(l.Warnings))
		if len(l.Warnings) > 0 {
			warnings = color.YellowString(warnings)
		}
		table.Append([]string{l.Table, l.Encoding, strconv.FormatInt(l.Rows, 10), warnings, formatDuration(l.Duration)})
	}
	table.Render()
}

// SchemaTable writes the live state of the layer tables.
func SchemaTable(w io.Writer, states []schema.TableState) {
	table := newTable(w, "LAYER", "TABLE", "EXISTS", "ROWS")
	for _, s := range states {
		exists, rows := color.RedString("no"), "-"
		if s.Exists {
			exists, rows = color.GreenString("yes"), strconv.FormatInt(s.Rows, 10)
		}
		table.Append([]string{s.Layer, s.Table, exists, rows})
	}
	table.Render()
}
