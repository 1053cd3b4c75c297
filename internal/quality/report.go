package quality

import (
	"strings"
	"time"

	"salesdw/pkg/errors"
)

// Report is the outcome of one quality run, in declared check order.
type Report struct {
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Failures are the results that fail the run.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failing() {
			out = append(out, res)
		}
	}
	return out
}

// Warnings are warning-severity findings whose query ran.
func (r *Report) Warnings() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err == nil && res.Check.Severity == SeverityWarning && res.Count > 0 {
			out = append(out, res)
		}
	}
	return out
}

// Passed counts the checks that ran without findings.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed() {
			n++
		}
	}
	return n
}

// Result looks a check up by id.
func (r *Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.Check.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// Counts maps each category to its total violation count.
func (r *Report) Counts() map[string]int64 {
	counts := make(map[string]int64)
	for _, res := range r.Results {
		counts[res.Check.Category] += res.Count
	}
	return counts
}

// Err is nil when no result fails the run. A check whose query failed
// takes precedence over findings.
func (r *Report) Err() error {
	var broken, violated []string
	var cause error
	for _, res := range r.Failures() {
		if res.Err != nil {
			if cause == nil {
				cause = res.Err
			}
			broken = append(broken, res.Check.ID)
			continue
		}
		violated = append(violated, res.Check.ID)
	}

	switch {
	case cause != nil:
		return errors.Wrap(cause, errors.ErrCodeCheckFailed, "Quality checks could not run").
			WithContext("checks", strings.Join(broken, ",")).
			WithSuggestions("Run 'salesdw schema apply' if layer tables are missing")
	case len(violated) > 0:
		return errors.New(errors.ErrCodeViolationsFound, "Quality checks found violations in silver").
			WithContext("checks", strings.Join(violated, ",")).
			WithSuggestions(
				"Rerun with --details to list the offending rows",
				"Run 'salesdw transform' to rebuild silver",
			)
	}
	return nil
}
