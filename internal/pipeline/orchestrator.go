// Package pipeline sequences the silver table loads of one batch.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"salesdw/internal/observability"
	"salesdw/internal/silver"
	"salesdw/pkg/errors"
)

// Mode is the transaction boundary of a batch.
type Mode string

const (
	// ModeTable commits each table on its own; a failure leaves earlier
	// tables loaded.
	ModeTable Mode = "table"
	// ModeBatch loads all tables in one transaction.
	ModeBatch Mode = "batch"
)

// ParseMode maps pipeline.transaction_mode onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTable, "":
		return ModeTable, nil
	case ModeBatch:
		return ModeBatch, nil
	default:
		return "", errors.ConfigError(fmt.Sprintf("unsupported transaction mode %q", s), "pipeline.transaction_mode")
	}
}

// Beginner starts warehouse transactions.
type Beginner interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

// Orchestrator runs the table loads in their fixed order and stops at the
// first failure.
type Orchestrator struct {
	db        Beginner
	steps     []silver.Step
	mode      Mode
	logger    zerolog.Logger
	metrics   *observability.Metrics
	observers []Observer
	newID     func() string
	now       func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithMode(mode Mode) Option { return func(o *Orchestrator) { o.mode = mode } }

func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func WithBatchID(fn func() string) Option { return func(o *Orchestrator) { o.newID = fn } }

// New creates an orchestrator over steps, in the order given.
func New(db Beginner, steps []silver.Step, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:     db,
		steps:  steps,
		mode:   ModeTable,
		logger: logger.With().Str("component", "pipeline").Logger(),
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one batch. The Result is always returned; the error is nil
// only when every table was loaded, and otherwise carries
// ErrCodeBatchPartial or ErrCodeBatchFailed wrapping the table failure.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		BatchID: o.newID(),
		Mode:    o.mode,
		Started: o.now(),
		Tables:  make([]TableResult, len(o.steps)),
	}
	for i, s := range o.steps {
		res.Tables[i] = TableResult{Table: s.Table, Status: StatusPending}
	}

	log := o.logger.With().Str("batch_id", res.BatchID).Str("mode", string(o.mode)).Logger()
	log.Info().Int("tables", len(o.steps)).Msg("batch started")
	o.emit(Event{Type: EventBatchStarted, BatchID: res.BatchID, Total: len(o.steps), Time: res.Started})

	var failure error
	if o.mode == ModeBatch {
		failure = o.runBatch(ctx, res, log)
	} else {
		failure = o.runTables(ctx, res, log)
	}

	for i := range res.Tables {
		t := &res.Tables[i]
		if t.Status == StatusPending {
			t.Status = StatusSkipped
			o.emit(Event{Type: EventTableSkipped, BatchID: res.BatchID, Table: t.Table, Index: i + 1, Total: len(o.steps), Time: o.now()})
		}
	}

	res.Finished = o.now()
	res.Outcome = outcome(res)
	if failure != nil {
		res.Err = o.batchError(res, failure)
	}

	for _, t := range res.Tables {
		o.metrics.ObserveTable(t.Table, string(t.Status), t.Rows, t.Duration)
	}
	o.metrics.ObserveBatch(string(res.Outcome))

	event := log.Info()
	if res.Err != nil {
		event = log.Error().Err(failure)
	}
	event.Str("outcome", string(res.Outcome)).
		Int("loaded", res.Loaded()).
		Int64("rows", res.Rows()).
		Dur("duration", res.Duration()).
		Msg("batch finished")

	o.emit(Event{
		Type:     EventBatchFinished,
		BatchID:  res.BatchID,
		Total:    len(o.steps),
		Rows:     res.Rows(),
		Duration: res.Duration(),
		Outcome:  res.Outcome,
		Err:      res.Err,
		Time:     res.Finished,
	})

	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

// runTables gives every table its own transaction.
func (o *Orchestrator) runTables(ctx context.Context, res *Result, log zerolog.Logger) error {
	for i, step := range o.steps {
		t := &res.Tables[i]
		if err := o.begin(ctx, res, i); err != nil {
			return err
		}

		tx, err := o.db.BeginTx(ctx)
		if err != nil {
			o.fail(res, i, err, log)
			return err
		}

		rows, err := step.Load(ctx, tx)
		if err != nil {
			rollback(tx, log)
			o.fail(res, i, err, log)
			return err
		}

		if err := tx.Commit(); err != nil {
			err = errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit table load").
				WithContext("table", step.Table)
			o.fail(res, i, err, log)
			return err
		}

		t.Rows = rows
		o.loaded(res, i, log)
	}
	return nil
}

// runBatch loads every table in one transaction, all or nothing.
func (o *Orchestrator) runBatch(ctx context.Context, res *Result, log zerolog.Logger) error {
	tx, err := o.db.BeginTx(ctx)
	if err != nil {
		if len(o.steps) > 0 {
			o.fail(res, 0, err, log)
		}
		return err
	}

	var done []int
	for i, step := range o.steps {
		if err := o.begin(ctx, res, i); err != nil {
			rollback(tx, log)
			o.rolledBack(res, done)
			return err
		}

		rows, err := step.Load(ctx, tx)
		if err != nil {
			rollback(tx, log)
			o.fail(res, i, err, log)
			o.rolledBack(res, done)
			return err
		}
		res.Tables[i].Rows = rows
		res.Tables[i].Duration = o.now().Sub(res.Tables[i].Started)
		done = append(done, i)
	}

	if err := tx.Commit(); err != nil {
		err = errors.Wrap(err, errors.ErrCodeSQLTransaction, "Failed to commit batch")
		o.rolledBack(res, done)
		return err
	}

	for _, i := range done {
		o.loaded(res, i, log)
	}
	return nil
}

// begin marks table i running, unless the context is already done.
func (o *Orchestrator) begin(ctx context.Context, res *Result, i int) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCancelled, "Batch cancelled").
			WithContext("table", o.steps[i].Table)
	}
	t := &res.Tables[i]
	t.Status = StatusRunning
	t.Started = o.now()
	o.emit(Event{Type: EventTableStarted, BatchID: res.BatchID, Table: t.Table, Index: i + 1, Total: len(o.steps), Time: t.Started})
	return nil
}

func (o *Orchestrator) loaded(res *Result, i int, log zerolog.Logger) {
	t := &res.Tables[i]
	t.Status = StatusLoaded
	if t.Duration == 0 {
		t.Duration = o.now().Sub(t.Started)
	}
	log.Info().Str("table", t.Table).Int64("rows", t.Rows).Dur("duration", t.Duration).Msg("table loaded")
	o.emit(Event{Type: EventTableLoaded, BatchID: res.BatchID, Table: t.Table, Index: i + 1, Total: len(o.steps), Rows: t.Rows, Duration: t.Duration, Time: o.now()})
}

func (o *Orchestrator) fail(res *Result, i int, err error, log zerolog.Logger) {
	t := &res.Tables[i]
	t.Status = StatusFailed
	t.Err = err
	t.Rows = 0
	if !t.Started.IsZero() {
		t.Duration = o.now().Sub(t.Started)
	}
	log.Error().Err(err).Str("table", t.Table).Str("code", string(errors.GetErrorCode(err))).Msg("table load failed")
	o.emit(Event{Type: EventTableFailed, BatchID: res.BatchID, Table: t.Table, Index: i + 1, Total: len(o.steps), Duration: t.Duration, Err: err, Time: o.now()})
}

func (o *Orchestrator) rolledBack(res *Result, done []int) {
	for _, i := range done {
		res.Tables[i].Status = StatusRolledBack
		res.Tables[i].Rows = 0
	}
}

func (o *Orchestrator) batchError(res *Result, cause error) error {
	code := errors.ErrCodeBatchFailed
	msg := "Batch failed, no table was loaded"
	if res.Outcome == OutcomePartial {
		code = errors.ErrCodeBatchPartial
		msg = fmt.Sprintf("Batch stopped after %d of %d tables", res.Loaded(), len(res.Tables))
	}

	err := errors.Wrap(cause, code, msg).
		WithContext("batch_id", res.BatchID).
		WithContext("mode", string(res.Mode))
	if failed := res.Failed(); failed != nil {
		err = err.WithContext("table", failed.Table)
	}
	if errors.GetErrorCode(cause) == errors.ErrCodeSQLObjectNotFound {
		err = err.WithSuggestions("Run 'salesdw schema apply' before the first transform")
	}
	return err
}

func (o *Orchestrator) emit(e Event) {
	for _, fn := range o.observers {
		fn(e)
	}
}

func outcome(res *Result) Outcome {
	loaded := res.Loaded()
	switch {
	case loaded == len(res.Tables):
		return OutcomeSucceeded
	case loaded > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

func rollback(tx *sql.Tx, log zerolog.Logger) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.Error().Err(err).Msg("rollback failed")
	}
}
