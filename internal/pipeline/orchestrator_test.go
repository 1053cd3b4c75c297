package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/observability"
	"salesdw/internal/silver"
	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

func newMockWarehouse(t *testing.T) (*warehouse.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return warehouse.NewWithDB(db, warehouse.SQLite, models.Layers{Bronze: "bronze", Silver: "silver"}, zerolog.Nop()), mock
}

// fakeSteps returns one step per table; the step at failAt returns an error.
func fakeSteps(calls *[]string, failAt int, failure error) []silver.Step {
	var steps []silver.Step
	for i, def := range models.Tables {
		i, table := i, def.Name
		steps = append(steps, silver.Step{
			Table: table,
			Load: func(ctx context.Context, q warehouse.Querier) (int64, error) {
				*calls = append(*calls, table)
				if i == failAt {
					return 0, failure
				}
				return int64(10 * (i + 1)), nil
			},
		})
	}
	return steps
}

func tickingClock() func() time.Time {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRunTableModeSucceeds(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	for range models.Tables {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	var calls []string
	var events []Event
	metrics := observability.NewMetrics()
	o := New(wh, fakeSteps(&calls, -1, nil), zerolog.Nop(),
		WithClock(tickingClock()),
		WithBatchID(func() string { return "batch-1" }),
		WithMetrics(metrics),
		WithObserver(func(e Event) { events = append(events, e) }),
	)

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "batch-1", res.BatchID)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 6, res.Loaded())
	assert.Equal(t, int64(210), res.Rows())
	assert.Nil(t, res.Failed())
	assert.True(t, res.Duration() > 0)
	assert.Equal(t, []string{
		models.CRMCustInfo, models.CRMPrdInfo, models.CRMSalesDetails,
		models.ERPCustAZ12, models.ERPLocA101, models.ERPPxCatG1V2,
	}, calls)

	for _, tr := range res.Tables {
		assert.Equal(t, StatusLoaded, tr.Status, tr.Table)
		assert.True(t, tr.Duration > 0, tr.Table)
	}

	require.Len(t, events, 1+6*2+1)
	assert.Equal(t, EventBatchStarted, events[0].Type)
	assert.Equal(t, EventTableStarted, events[1].Type)
	assert.Equal(t, EventTableLoaded, events[2].Type)
	assert.Equal(t, int64(10), events[2].Rows)
	assert.Equal(t, 1, events[2].Index)
	assert.Equal(t, EventBatchFinished, events[len(events)-1].Type)
	assert.Equal(t, OutcomeSucceeded, events[len(events)-1].Outcome)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Batches.WithLabelValues("succeeded")))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.TableRows.WithLabelValues(models.CRMSalesDetails)))
}

func TestRunTableModeStopsAtFirstFailure(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	var calls []string
	var failed []Event
	boom := errors.SQLError("Failed to insert into silver.crm_sales_details", "INSERT ...", fmt.Errorf("permission denied for schema silver"))
	o := New(wh, fakeSteps(&calls, 2, boom), zerolog.Nop(),
		WithClock(tickingClock()),
		WithObserver(func(e Event) {
			if e.Type == EventTableFailed {
				failed = append(failed, e)
			}
		}),
	)

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, errors.ErrCodeBatchPartial, errors.GetErrorCode(err))
	assert.ErrorIs(t, err, errors.New(errors.ErrCodeSQLPermission, ""))
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Len(t, calls, 3)

	assert.Equal(t, StatusLoaded, res.Tables[0].Status)
	assert.Equal(t, StatusLoaded, res.Tables[1].Status)
	assert.Equal(t, StatusFailed, res.Tables[2].Status)
	assert.Equal(t, boom, res.Tables[2].Err)
	for _, tr := range res.Tables[3:] {
		assert.Equal(t, StatusSkipped, tr.Status, tr.Table)
	}
	require.Len(t, failed, 1)
	assert.Equal(t, models.CRMSalesDetails, failed[0].Table)

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CRMSalesDetails, appErr.Context["table"])
	assert.NotEmpty(t, appErr.Context["batch_id"])
}

func TestRunTableModeFirstTableFails(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	var calls []string
	o := New(wh, fakeSteps(&calls, 0, fmt.Errorf("no such table: silver.crm_cust_info")), zerolog.Nop())

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBatchFailed, errors.GetErrorCode(err))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Zero(t, res.Loaded())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTableModeCommitFailure(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(fmt.Errorf("connection reset"))

	var calls []string
	o := New(wh, fakeSteps(&calls, -1, nil), zerolog.Nop())

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Tables[0].Status)
	assert.Equal(t, StatusSkipped, res.Tables[1].Status)
	assert.Len(t, calls, 1)
}

func TestRunBatchModeRollsBackEverything(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	var calls []string
	metrics := observability.NewMetrics()
	o := New(wh, fakeSteps(&calls, 3, fmt.Errorf("disk full")), zerolog.Nop(),
		WithMode(ModeBatch), WithMetrics(metrics))

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, errors.ErrCodeBatchFailed, errors.GetErrorCode(err))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, ModeBatch, res.Mode)
	for _, tr := range res.Tables[:3] {
		assert.Equal(t, StatusRolledBack, tr.Status, tr.Table)
		assert.Zero(t, tr.Rows)
	}
	assert.Equal(t, StatusFailed, res.Tables[3].Status)
	assert.Equal(t, StatusSkipped, res.Tables[4].Status)
	assert.Equal(t, StatusSkipped, res.Tables[5].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Batches.WithLabelValues("failed")))
}

func TestRunBatchModeCommitsOnce(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var calls []string
	o := New(wh, fakeSteps(&calls, -1, nil), zerolog.Nop(), WithMode(ModeBatch), WithClock(tickingClock()))

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 6, res.Loaded())
	assert.Equal(t, int64(60), res.Table(models.ERPPxCatG1V2).Rows)
}

func TestRunCancelled(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	res, err := New(wh, fakeSteps(&calls, -1, nil), zerolog.Nop()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.New(errors.ErrCodeCancelled, ""))
	assert.Empty(t, calls)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	for _, tr := range res.Tables {
		assert.Equal(t, StatusSkipped, tr.Status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTable, m)

	m, err = ParseMode("batch")
	require.NoError(t, err)
	assert.Equal(t, ModeBatch, m)

	_, err = ParseMode("nested")
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
}
