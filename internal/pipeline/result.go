package pipeline

import "time"

// TableStatus is the state of one table within a batch.
type TableStatus string

const (
	StatusPending    TableStatus = "pending"
	StatusRunning    TableStatus = "running"
	StatusLoaded     TableStatus = "loaded"
	StatusFailed     TableStatus = "failed"
	StatusSkipped    TableStatus = "skipped"
	StatusRolledBack TableStatus = "rolled_back"
)

// Outcome summarizes a finished batch.
type Outcome string

const (
	// OutcomeSucceeded means every table was loaded and committed.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomePartial means at least one table was committed before a failure.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means no table load was committed.
	OutcomeFailed Outcome = "failed"
)

// TableResult records one table's load.
type TableResult struct {
	Table    string
	Status   TableStatus
	Rows     int64
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Result is the batch context: per-table status plus overall timing.
type Result struct {
	BatchID  string
	Mode     Mode
	Started  time.Time
	Finished time.Time
	Tables   []TableResult
	Outcome  Outcome
	Err      error
}

// Duration is the wall time of the whole batch.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Loaded counts the tables whose load was committed.
func (r *Result) Loaded() int {
	n := 0
	for _, t := range r.Tables {
		if t.Status == StatusLoaded {
			n++
		}
	}
	return n
}

// Rows sums the rows written by committed loads.
func (r *Result) Rows() int64 {
	var n int64
	for _, t := range r.Tables {
		if t.Status == StatusLoaded {
			n += t.Rows
		}
	}
	return n
}

// Failed returns the table whose load failed, or nil.
func (r *Result) Failed() *TableResult {
	for i := range r.Tables {
		if r.Tables[i].Status == StatusFailed {
			return &r.Tables[i]
		}
	}
	return nil
}

// Table returns the result for the named table, or nil.
func (r *Result) Table(name string) *TableResult {
	for i := range r.Tables {
		if r.Tables[i].Table == name {
			return &r.Tables[i]
		}
	}
	return nil
}
