package quality

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"salesdw/internal/observability"
	"salesdw/internal/standardize"
	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
)

const (
	DefaultParallelism = 4
	DefaultDetailLimit = 25
)

// Filter narrows a run. Zero values select everything.
type Filter struct {
	Layer    Layer
	Category string
	Details  bool // Fetch row listings for checks with findings
}

func (f Filter) match(c Check) bool {
	if f.Layer != "" && c.Layer != f.Layer {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	return true
}

// Engine runs checks against a warehouse.
type Engine struct {
	wh          *warehouse.Service
	std         *standardize.Standardizer
	checks      []Check
	parallelism int
	detailLimit int
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

type Option func(*Engine)

// WithChecks replaces the catalogue.
func WithChecks(checks []Check) Option {
	return func(e *Engine) { e.checks = checks }
}

func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

func WithDetailLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.detailLimit = n
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine builds an engine over the full Catalog. A nil standardizer uses
// the built-in code tables.
func NewEngine(wh *warehouse.Service, std *standardize.Standardizer, logger zerolog.Logger, opts ...Option) *Engine {
	if std == nil {
		std = standardize.Default()
	}
	e := &Engine{
		wh:          wh,
		std:         std,
		checks:      Catalog(),
		parallelism: DefaultParallelism,
		detailLimit: DefaultDetailLimit,
		logger:      logger.With().Str("component", "quality").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Checks lists the checks a filter selects, in declared order.
func (e *Engine) Checks(f Filter) []Check {
	var selected []Check
	for _, c := range e.checks {
		if f.match(c) {
			selected = append(selected, c)
		}
	}
	return selected
}

// Categories lists the distinct categories in declared order.
func (e *Engine) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, c := range e.checks {
		if !seen[c.Category] {
			seen[c.Category] = true
			categories = append(categories, c.Category)
		}
	}
	return categories
}

// rendered holds the final SQL of a check.
type rendered struct {
	check  Check
	count  string
	detail string
}

// Render produces the SQL a check will run.
func (e *Engine) Render(c Check) (count, detail string, err error) {
	r, err := e.render(c)
	if err != nil {
		return "", "", err
	}
	return r.count, r.detail, nil
}

func (e *Engine) render(c Check) (rendered, error) {
	r := rendered{check: c}

	countSrc, detailSrc := c.Query, c.Detail
	if countSrc == "" {
		if c.Table == "" || c.Where == "" {
			return r, errors.New(errors.ErrCodeInternal, "check has neither a query nor a table predicate").
				WithContext("check", c.ID)
		}
		from := fmt.Sprintf("{{%s %q}}", c.Layer, c.Table)
		countSrc = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE (%s)", from, c.Where)
		if detailSrc == "" && len(c.Columns) > 0 {
			detailSrc = fmt.Sprintf("SELECT %s FROM %s WHERE (%s) ORDER BY %s",
				strings.Join(c.Columns, ", "), from, c.Where, strings.Join(c.Columns, ", "))
		}
	}

	var err error
	if r.count, err = e.execute(c.ID, countSrc); err != nil {
		return r, err
	}
	if detailSrc != "" {
		if r.detail, err = e.execute(c.ID+"_detail", detailSrc); err != nil {
			return r, err
		}
		r.detail = fmt.Sprintf("%s LIMIT %d", r.detail, e.detailLimit)
	}
	return r, nil
}

func (e *Engine) execute(name, src string) (string, error) {
	tmpl, err := template.New(name).Funcs(e.funcs()).Parse(src)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "Invalid check template").WithContext("check", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "Failed to render check").WithContext("check", name)
	}
	return buf.String(), nil
}

func (e *Engine) funcs() template.FuncMap {
	table := func(name string) (*standardize.CodeTable, error) {
		t := e.std.Table(name)
		if t == nil {
			return nil, fmt.Errorf("unknown code table %q", name)
		}
		return t, nil
	}
	return template.FuncMap{
		"bronze": e.wh.Bronze,
		"silver": e.wh.Silver,
		"codes": func(name string) (string, error) {
			t, err := table(name)
			if err != nil {
				return "", err
			}
			return quoteList(t.Codes()), nil
		},
		"labels": func(name string) (string, error) {
			t, err := table(name)
			if err != nil {
				return "", err
			}
			return quoteList(t.Labels()), nil
		},
		"sourceCodes": func(name string) (string, error) {
			t, err := table(name)
			if err != nil {
				return "", err
			}
			var codes []string
			for _, code := range t.Codes() {
				if strings.ToUpper(t.Map(code)) != code {
					codes = append(codes, code)
				}
			}
			return quoteList(codes), nil
		},
	}
}

// quoteList renders SQL string literals for an IN list. An empty list
// renders NULL, which matches nothing.
func quoteList(values []string) string {
	if len(values) == 0 {
		return "NULL"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// Run executes the selected checks concurrently and returns them in
// declared order. Query failures are recorded on their result; the error
// return is reserved for checks that cannot be rendered.
func (e *Engine) Run(ctx context.Context, f Filter) (*Report, error) {
	checks := e.Checks(f)
	plans := make([]rendered, len(checks))
	for i, c := range checks {
		r, err := e.render(c)
		if err != nil {
			return nil, err
		}
		plans[i] = r
	}

	report := &Report{Started: time.Now(), Results: make([]Result, len(plans))}
	e.logger.Info().
		Int("checks", len(plans)).
		Str("layer", string(f.Layer)).
		Str("category", f.Category).
		Msg("Running quality checks")

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i := range plans {
		i := i
		g.Go(func() error {
			report.Results[i] = e.run(ctx, plans[i], f.Details)
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(report.Started)

	for _, r := range report.Results {
		e.metrics.ObserveCheck(r.Check.ID, string(r.Check.Layer), string(r.Check.Severity), r.Count, r.Err != nil)
	}

	e.logger.Info().
		Int("passed", report.Passed()).
		Int("failures", len(report.Failures())).
		Int("warnings", len(report.Warnings())).
		Dur("duration", report.Duration).
		Msg("Quality checks finished")
	return report, nil
}

func (e *Engine) run(ctx context.Context, p rendered, details bool) Result {
	started := time.Now()
	res := Result{Check: p.check}

	if err := ctx.Err(); err != nil {
		res.Err = errors.Wrap(err, errors.ErrCodeCancelled, "Check cancelled").WithContext("check", p.check.ID)
		return finish(res, started)
	}

	qctx, cancel := e.wh.Context(ctx)
	defer cancel()
	db := e.wh.DB()

	switch p.check.Kind {
	case KindParity:
		var bronze, silver sql.NullInt64
		if err := db.QueryRowContext(qctx, p.count).Scan(&bronze, &silver); err != nil {
			res.Err = errors.SQLError("Parity check failed", p.count, err).
				WithContext("check", p.check.ID).
				WithContext("sqlstate", warehouse.SQLState(err))
			return finish(res, started)
		}
		res.Bronze, res.Silver = bronze.Int64, silver.Int64
		res.Count = res.Bronze - res.Silver
		if res.Count < 0 {
			res.Count = -res.Count
		}
	default:
		n, err := e.wh.QueryInt(qctx, db, p.count)
		if err != nil {
			res.Err = errors.Wrap(err, errors.ErrCodeCheckFailed, "Check query failed").WithContext("check", p.check.ID)
			return finish(res, started)
		}
		res.Count = n
	}

	if details && res.Count > 0 && p.detail != "" {
		cols, rows, err := queryStrings(qctx, db, p.detail)
		if err != nil {
			res.Err = errors.SQLError("Detail query failed", p.detail, err).
				WithContext("check", p.check.ID).
				WithContext("sqlstate", warehouse.SQLState(err))
			return finish(res, started)
		}
		res.Columns, res.Rows = cols, rows
	}

	e.logger.Debug().
		Str("check", p.check.ID).
		Int64("count", res.Count).
		Msg("Check finished")
	return finish(res, started)
}

func finish(r Result, started time.Time) Result {
	r.Duration = time.Since(started)
	return r
}

// queryStrings reads every row as display strings and closes the cursor
// before returning.
func queryStrings(ctx context.Context, q warehouse.Querier, query string) ([]string, [][]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = display(v)
		}
		out = append(out, record)
	}
	return cols, out, rows.Err()
}

func display(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}
