package pipeline

import "time"

// EventType identifies a progress event.
type EventType string

const (
	EventBatchStarted  EventType = "batch_started"
	EventTableStarted  EventType = "table_started"
	EventTableLoaded   EventType = "table_loaded"
	EventTableFailed   EventType = "table_failed"
	EventTableSkipped  EventType = "table_skipped"
	EventBatchFinished EventType = "batch_finished"
)

// Event is emitted as a batch progresses. Observers only watch; they cannot
// change the batch.
type Event struct {
	Type     EventType
	BatchID  string
	Table    string
	Index    int // 1-based position of Table in the load order
	Total    int
	Rows     int64
	Duration time.Duration
	Outcome  Outcome
	Err      error
	Time     time.Time
}

// Observer receives events synchronously, in order.
type Observer func(Event)
