// Package ingest bulk loads the CRM and ERP CSV extracts into bronze.
package ingest

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"salesdw/internal/common"
	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// TableLoad reports one bronze table.
type TableLoad struct {
	Table    string
	Source   string
	Encoding string
	Rows     int64
	Warnings []Warning
	Duration time.Duration
}

// Loader truncates and reloads bronze tables from a source directory.
type Loader struct {
	wh        *warehouse.Service
	sourceDir string
	batchSize int
	logger    zerolog.Logger
}

func NewLoader(wh *warehouse.Service, sourceDir string, batchSize int, logger zerolog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = warehouse.DefaultBatchSize
	}
	return &Loader{
		wh:        wh,
		sourceDir: sourceDir,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// Load reads every extract, then replaces each bronze table in its own
// transaction in load order. Nothing is written unless every extract parses.
func (l *Loader) Load(ctx context.Context) ([]TableLoad, error) {
	parsed := make([]*Parsed, len(models.Tables))
	sources := make([]string, len(models.Tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, def := range models.Tables {
		i, def := i, def
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			source, p, err := l.read(def)
			if err != nil {
				return err
			}
			sources[i], parsed[i] = source, p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loads := make([]TableLoad, 0, len(models.Tables))
	for i, def := range models.Tables {
		load, err := l.write(ctx, def, sources[i], parsed[i])
		if err != nil {
			return loads, err
		}
		loads = append(loads, load)
	}
	return loads, nil
}

// LoadTable reads and replaces a single bronze table.
func (l *Loader) LoadTable(ctx context.Context, name string) (TableLoad, error) {
	def, ok := models.LookupTable(name)
	if !ok {
		return TableLoad{}, errors.New(errors.ErrCodeInvalidInput, "Unknown table "+name)
	}
	source, p, err := l.read(def)
	if err != nil {
		return TableLoad{}, err
	}
	return l.write(ctx, def, source, p)
}

func (l *Loader) read(def models.TableDef) (string, *Parsed, error) {
	source, err := common.JoinPath(l.sourceDir, def.Source)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid source path").
			WithContext("table", def.Name)
	}
	data, err := os.ReadFile(source) // #nosec G304 - path is validated
	if err != nil {
		code := errors.ErrCodeFileOperation
		if os.IsNotExist(err) {
			code = errors.ErrCodeSourceNotFound
		}
		return "", nil, errors.Wrap(err, code, "Failed to read extract").
			WithContext("table", def.Name).
			WithContext("source", source).
			WithSuggestions("Check ingest.source_dir or pass --source")
	}

	p, err := Parse(data, def)
	if err != nil {
		return "", nil, err
	}
	for _, w := range p.Warnings {
		l.logger.Warn().
			Str("table", def.Name).
			Int("row", w.Row).
			Str("column", w.Column).
			Msg(w.Message)
	}
	return source, p, nil
}

func (l *Loader) write(ctx context.Context, def models.TableDef, source string, p *Parsed) (TableLoad, error) {
	started := time.Now()
	d := l.wh.Dialect()
	table := l.wh.Bronze(def.Name)

	rows := make([][]interface{}, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = bind(d, def.Bronze, r)
	}

	var loaded int64
	err := l.wh.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, d.ClearTable(table)); err != nil {
			return errors.SQLError("Failed to clear bronze table", d.ClearTable(table), err).
				WithContext("table", def.Name).
				WithContext("sqlstate", warehouse.SQLState(err))
		}
		n, err := warehouse.NewInserter(d, table, models.ColumnNames(def.Bronze), l.batchSize).Insert(ctx, tx, rows)
		loaded = n
		return err
	})
	if err != nil {
		return TableLoad{}, errors.Wrap(err, errors.GetErrorCode(err), "Failed to load bronze table").
			WithContext("table", def.Name)
	}

	load := TableLoad{
		Table:    def.Name,
		Source:   source,
		Encoding: p.Encoding,
		Rows:     loaded,
		Warnings: p.Warnings,
		Duration: time.Since(started),
	}
	l.logger.Info().
		Str("table", def.Name).
		Str("encoding", p.Encoding).
		Int64("rows", loaded).
		Int("warnings", len(p.Warnings)).
		Dur("duration", load.Duration).
		Msg("Bronze table loaded")
	return load, nil
}

// bind converts parsed cells into driver values for the dialect.
func bind(d warehouse.Dialect, cols []models.Column, row []interface{}) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		ts, ok := v.(time.Time)
		switch {
		case !ok:
			out[i] = v
		case cols[i].Type == models.Date:
			out[i] = d.BindDate(ts)
		default:
			out[i] = d.BindTimestamp(ts)
		}
	}
	return out
}
