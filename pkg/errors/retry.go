package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// RetryConfig controls how Retry backs off between attempts.
type RetryConfig struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	Jitter         bool
	RetryableError func(error) bool
	// OnRetry is called before each wait; nil means silent retries.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig retries a warehouse connect three times, starting at
// one second and doubling up to thirty.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		RetryableError: Retryable,
	}
}

// Retryable reports whether another attempt could succeed: recoverable
// errors, timeouts and an open circuit.
func Retryable(err error) bool {
	if IsRecoverable(err) {
		return true
	}
	switch GetErrorCode(err) {
	case ErrCodeConnectionTimeout, ErrCodeTimeout, ErrCodeServiceUnavailable:
		return true
	}
	return false
}

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func(ctx context.Context) error

// Retry runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries extra attempts are used up. Cancelling ctx stops the wait.
func Retry(ctx context.Context, config *RetryConfig, fn RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	retryable := config.RetryableError
	if retryable == nil {
		retryable = Retryable
	}

	attempts := config.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := config.delay(attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Wrap(ctx.Err(), ErrCodeCancelled, "Retry cancelled").
				WithContext("attempts", attempt).
				WithContext("last_error", err.Error())
		}
	}

	return Wrap(err, ErrCodeResourceExhausted, fmt.Sprintf("Gave up after %d attempts", attempts)).
		WithContext("attempts", attempts)
}

// delay is the wait after the given 1-based attempt, capped at MaxDelay
// before up to 30% jitter is added.
func (c *RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if limit := float64(c.MaxDelay); c.MaxDelay > 0 && d > limit {
		d = limit
	}
	if c.Jitter {
		d += d * 0.3 * rand.Float64() // #nosec G404 - backoff jitter
	}
	return time.Duration(d)
}

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a warehouse after maxFailures consecutive
// failures. Once resetTimeout has passed it lets one trial call through:
// success closes the circuit, failure opens it again.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	// OnStateChange, when set, is called after every transition.
	OnStateChange func(name string, from, to CircuitState)

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time
	lastErr  error
}

// NewCircuitBreaker creates a closed breaker named after what it guards,
// usually the warehouse driver.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, ErrCodeCancelled, "Cancelled before calling the warehouse").WithContext("circuit", cb.name)
	}
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	retryAt := cb.openedAt.Add(cb.resetTimeout)
	if !cb.now().Before(retryAt) {
		cb.transition(StateHalfOpen)
		return nil
	}

	err := New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s warehouse is failing; calls are paused", cb.name)).
		WithContext("circuit", cb.name).
		WithContext("failures", cb.failures).
		WithContext("retry_at", retryAt.Format(time.RFC3339)).
		WithSuggestions(
			"Wait for the pause to end and rerun the command",
			"Check the warehouse section of the configuration",
		).AsRecoverable()
	if cb.lastErr != nil {
		err.Cause = cb.lastErr
	}
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.lastErr = nil
		if cb.state != StateClosed {
			cb.transition(StateClosed)
		}
		return
	}

	cb.failures++
	cb.lastErr = err
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.openedAt = cb.now()
		if cb.state != StateOpen {
			cb.transition(StateOpen)
		}
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.OnStateChange != nil {
		cb.OnStateChange(cb.name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
