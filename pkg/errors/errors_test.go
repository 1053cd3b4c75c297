package errors

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrCodeConnectionFailed, "Connection failed"),
			expected: "[SDW1001] ERROR: Connection failed",
		},
		{
			name: "error with suggestions",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithSuggestions("Check network", "Verify credentials"),
			expected: "[SDW1001] ERROR: Connection failed\nSuggestions:\n  1. Check network\n  2. Verify credentials",
		},
		{
			name: "error with context",
			err: New(ErrCodeConnectionFailed, "Connection failed").
				WithContext("host", "example.com").
				WithContext("port", 443),
			expected: "[SDW1001] ERROR: Connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != ErrCodeConnectionFailed {
				t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, tt.err.Code)
			}
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("database connection refused")

	appErr := Wrap(baseErr, ErrCodeConnectionFailed, "Failed to connect to warehouse")

	if appErr.Cause != baseErr {
		t.Error("Wrapped error should contain original error as cause")
	}
	if appErr.Code != ErrCodeConnectionFailed {
		t.Errorf("Expected code %s, got %s", ErrCodeConnectionFailed, appErr.Code)
	}
	if Wrap(nil, ErrCodeInternal, "nothing") != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeSQLExecution, "insert failed").WithContext("table", "silver.crm_cust_info")
	outer := Wrap(fmt.Errorf("load: %w", inner), ErrCodeTableLoad, "table load failed")

	if outer.Context["table"] != "silver.crm_cust_info" {
		t.Errorf("Expected inherited context, got %v", outer.Context)
	}
	if GetErrorCode(outer) != ErrCodeTableLoad {
		t.Errorf("Expected outer code, got %s", GetErrorCode(outer))
	}
}

func TestSQLErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  ErrorCode
	}{
		{"missing table", fmt.Errorf("no such table: silver.crm_prd_info"), ErrCodeSQLObjectNotFound},
		{"permission", fmt.Errorf("Insufficient privileges to operate on schema 'SILVER'"), ErrCodeSQLPermission},
		{"timeout", context.DeadlineExceeded, ErrCodeSQLTimeout},
		{"constraint", fmt.Errorf("UNIQUE constraint failed: crm_cust_info.cst_id"), ErrCodeSQLConstraint},
		{"syntax", fmt.Errorf("syntax error at or near \"FROM\""), ErrCodeSQLSyntax},
		{"other", fmt.Errorf("connection reset"), ErrCodeSQLExecution},
		{"nil cause", nil, ErrCodeSQLExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SQLError("statement failed", "  SELECT 1  ", tt.cause)
			if err.Code != tt.code {
				t.Errorf("Expected %s, got %s", tt.code, err.Code)
			}
			if err.Context["query"] != "SELECT 1" {
				t.Errorf("Expected trimmed query in context, got %v", err.Context["query"])
			}
		})
	}
}

func TestRetryLogic(t *testing.T) {
	attempts := 0
	maxAttempts := 3
	var retried []int

	config := &RetryConfig{
		MaxRetries:   maxAttempts - 1,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
		RetryableError: func(err error) bool {
			return true
		},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			retried = append(retried, attempt)
		},
	}

	ctx := context.Background()

	err := Retry(ctx, config, func(ctx context.Context) error {
		attempts++
		if attempts < maxAttempts {
			return fmt.Errorf("temporary failure")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected success after retries, got %v", err)
	}
	if attempts != maxAttempts {
		t.Errorf("Expected %d attempts, got %d", maxAttempts, attempts)
	}
	if len(retried) != maxAttempts-1 {
		t.Errorf("Expected %d retry callbacks, got %d", maxAttempts-1, len(retried))
	}

	attempts = 0
	err = Retry(ctx, config, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("permanent failure")
	})

	if err == nil {
		t.Error("Expected error after max retries")
	}
	if GetErrorCode(err) != ErrCodeResourceExhausted {
		t.Errorf("Expected exhausted code, got %s", GetErrorCode(err))
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func(ctx context.Context) error {
		attempts++
		return New(ErrCodeAuthenticationFailed, "bad password")
	})

	if attempts != 1 {
		t.Errorf("Expected a single attempt, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "bad password") {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 100*time.Millisecond)
	ctx := context.Background()

	err := cb.Execute(ctx, func() error {
		return fmt.Errorf("failure 1")
	})
	if err == nil {
		t.Error("Expected error")
	}

	// Second failure opens the circuit
	err = cb.Execute(ctx, func() error {
		return fmt.Errorf("failure 2")
	})
	if err == nil {
		t.Error("Expected error")
	}

	err = cb.Execute(ctx, func() error {
		return nil
	})
	if err == nil {
		t.Error("Expected circuit breaker to be open")
	}

	time.Sleep(150 * time.Millisecond)

	err = cb.Execute(ctx, func() error {
		return nil
	})
	if err != nil {
		t.Error("Expected success after reset")
	}

	if cb.State() != StateClosed {
		t.Errorf("Expected circuit to be closed, got %s", cb.State())
	}
}

func TestCircuitBreakerReportsTransitions(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("snowflake", 1, time.Minute)
	cb.now = func() time.Time { return now }

	var seen []string
	cb.OnStateChange = func(name string, from, to CircuitState) {
		seen = append(seen, fmt.Sprintf("%s:%s->%s", name, from, to))
	}
	ctx := context.Background()

	cause := fmt.Errorf("dial tcp: connection refused")
	if err := cb.Execute(ctx, func() error { return cause }); err != cause {
		t.Fatalf("Expected the call's own error, got %v", err)
	}

	err := cb.Execute(ctx, func() error { t.Fatal("open circuit must not call through"); return nil })
	var appErr *AppError
	if !As(err, &appErr) {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Code != ErrCodeServiceUnavailable || !appErr.Recoverable {
		t.Errorf("Expected recoverable service unavailable, got %s recoverable=%v", appErr.Code, appErr.Recoverable)
	}
	if appErr.Context["circuit"] != "snowflake" || appErr.Cause != cause {
		t.Errorf("Expected circuit context and last failure as cause, got %v / %v", appErr.Context, appErr.Cause)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("Expected trial call to succeed, got %v", err)
	}

	want := []string{"snowflake:closed->open", "snowflake:open->half-open", "snowflake:half-open->closed"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("Expected transitions %v, got %v", want, seen)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &RetryConfig{
		MaxRetries:     5,
		InitialDelay:   time.Hour,
		RetryableError: func(error) bool { return true },
		OnRetry:        func(int, time.Duration, error) { cancel() },
	}

	attempts := 0
	err := Retry(ctx, config, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("warehouse unreachable")
	})

	if attempts != 1 {
		t.Errorf("Expected one attempt before cancellation, got %d", attempts)
	}
	if GetErrorCode(err) != ErrCodeCancelled || !Is(err, context.Canceled) {
		t.Errorf("Expected cancelled error wrapping context.Canceled, got %v", err)
	}
}

func TestRetryDelayIsCapped(t *testing.T) {
	config := &RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}
	got := []time.Duration{config.delay(1), config.delay(2), config.delay(3), config.delay(4)}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d: expected %s, got %s", i+1, want[i], got[i])
		}
	}
}

func TestErrorCodes(t *testing.T) {
	err1 := New(ErrCodeBatchPartial, "Test")
	if GetErrorCode(err1) != ErrCodeBatchPartial {
		t.Error("Failed to extract error code from AppError")
	}

	err2 := fmt.Errorf("regular error")
	if GetErrorCode(err2) != ErrCodeInternal {
		t.Error("Should return internal error code for non-AppError")
	}
}

func TestErrorSeverity(t *testing.T) {
	tests := []struct {
		severity ErrorSeverity
		err      *AppError
	}{
		{
			severity: SeverityCritical,
			err:      New(ErrCodeInternal, "Critical error").WithSeverity(SeverityCritical),
		},
		{
			severity: SeverityWarning,
			err:      ValidationError("pipeline.batch_size", -1, "must be positive"),
		},
	}

	for _, tt := range tests {
		if tt.err.Severity != tt.severity {
			t.Errorf("Expected severity %s, got %s", tt.severity, tt.err.Severity)
		}
	}
}

func BenchmarkErrorCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = New(ErrCodeConnectionFailed, "Connection failed").
			WithContext("host", "example.com").
			WithSuggestions("Check connection")
	}
}
