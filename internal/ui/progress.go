package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"salesdw/internal/pipeline"
)

// BatchProgress prints one line per table as a batch runs.
type BatchProgress struct {
	w  io.Writer
	mu sync.Mutex
}

func NewBatchProgress(w io.Writer) *BatchProgress {
	return &BatchProgress{w: w}
}

// Observe is a pipeline.Observer.
func (p *BatchProgress) Observe(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	step := fmt.Sprintf("[%d/%d]", e.Index, e.Total)
	switch e.Type {
	case pipeline.EventBatchStarted:
		fmt.Fprintf(p.w, "%s batch %s: %d tables\n", ColorProgress("►"), e.BatchID, e.Total)
	case pipeline.EventTableStarted:
		fmt.Fprintf(p.w, "%s %s loading %s\n", ColorProgress("►"), step, e.Table)
	case pipeline.EventTableLoaded:
		fmt.Fprintf(p.w, "%s %s %s: %d rows in %s\n", ColorSuccess("✓"), step, e.Table, e.Rows, formatDuration(e.Duration))
	case pipeline.EventTableFailed:
		fmt.Fprintf(p.w, "%s %s %s failed after %s\n", ColorError("✗"), step, e.Table, formatDuration(e.Duration))
	case pipeline.EventTableSkipped:
		fmt.Fprintf(p.w, "%s %s %s skipped\n", ColorDim("-"), step, e.Table)
	case pipeline.EventBatchFinished:
		status := ColorSuccess(string(e.Outcome))
		if e.Outcome != pipeline.OutcomeSucceeded {
			status = ColorError(string(e.Outcome))
		}
		fmt.Fprintf(p.w, "\nBatch %s %s in %s\n", e.BatchID, status, formatDuration(e.Duration))
	}
}

// Spinner represents an animated spinner for long operations
type Spinner struct {
	w       io.Writer
	frames  []string
	current int
	message string
	stop    chan bool
	stopped bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		stop:    make(chan bool),
	}
}

// Start begins the spinner animation. Without a color terminal it prints
// the message once instead.
func (s *Spinner) Start() {
	if !supportsColor {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(s.w, "\r%s %s %s",
						ColorProgress(s.frames[s.current]),
						s.message,
						strings.Repeat(" ", 20), // Clear extra characters
					)
					s.current = (s.current + 1) % len(s.frames)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status.
func (s *Spinner) Stop(success bool, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stop)

	if supportsColor {
		fmt.Fprint(s.w, "\r\033[K")
	}
	if success {
		fmt.Fprintf(s.w, "%s %s\n", ColorSuccess("✓"), message)
	} else {
		fmt.Fprintf(s.w, "%s %s\n", ColorError("✗"), message)
	}
}
