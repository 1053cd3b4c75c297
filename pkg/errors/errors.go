package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "SDW1001"
	ErrCodeConnectionTimeout    ErrorCode = "SDW1002"
	ErrCodeAuthenticationFailed ErrorCode = "SDW1003"
	ErrCodeUnsupportedDriver    ErrorCode = "SDW1004"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound ErrorCode = "SDW2001"
	ErrCodeConfigInvalid  ErrorCode = "SDW2002"
	ErrCodeConfigMissing  ErrorCode = "SDW2003"
	ErrCodeCredentials    ErrorCode = "SDW2004"

	// Ingestion errors (3xxx)
	ErrCodeSourceNotFound  ErrorCode = "SDW3001"
	ErrCodeSourceMalformed ErrorCode = "SDW3002"
	ErrCodeSourceEncoding  ErrorCode = "SDW3003"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "SDW4001"
	ErrCodeSQLPermission     ErrorCode = "SDW4002"
	ErrCodeSQLTimeout        ErrorCode = "SDW4003"
	ErrCodeSQLTransaction    ErrorCode = "SDW4004"
	ErrCodeSQLObjectNotFound ErrorCode = "SDW4005"
	ErrCodeSQLExecution      ErrorCode = "SDW4006"
	ErrCodeSQLConstraint     ErrorCode = "SDW4007"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "SDW5001"
	ErrCodeFilePermission ErrorCode = "SDW5002"
	ErrCodeFileOperation  ErrorCode = "SDW5003"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "SDW6001"
	ErrCodeInvalidInput     ErrorCode = "SDW6002"
	ErrCodeRequiredField    ErrorCode = "SDW6003"

	// Batch errors (7xxx)
	ErrCodeBatchPartial ErrorCode = "SDW7001"
	ErrCodeBatchFailed  ErrorCode = "SDW7002"
	ErrCodeTableLoad    ErrorCode = "SDW7003"
	ErrCodeLockHeld     ErrorCode = "SDW7004"

	// Quality errors (8xxx)
	ErrCodeCheckFailed     ErrorCode = "SDW8001"
	ErrCodeViolationsFound ErrorCode = "SDW8002"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "SDW9001"
	ErrCodeTimeout            ErrorCode = "SDW9002"
	ErrCodeResourceExhausted  ErrorCode = "SDW9003"
	ErrCodeServiceUnavailable ErrorCode = "SDW9004"
	ErrCodeCancelled          ErrorCode = "SDW9005"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // System failure, requires immediate attention
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed, but system continues
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"     // Informational, not an error
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Severity:    SeverityError,
		Context:     make(map[string]interface{}),
		Stack:       captureStack(),
		Timestamp:   time.Now(),
		Recoverable: false,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// If wrapping another AppError, inherit its context
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

// captureStack captures the current stack trace
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSeverity(SeverityError).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse endpoint is reachable",
			"Check the warehouse section of the configuration",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'salesdw setup' to reconfigure",
		)
}

// SQLError creates an SQL execution error. The cause message is inspected
// to pick a more specific code where the driver reports one.
func SQLError(message string, query string, cause error) *AppError {
	err := New(ErrCodeSQLExecution, message)
	if cause != nil {
		err = Wrap(cause, ErrCodeSQLExecution, message)
	}
	_ = err.WithContext("query", truncateString(strings.TrimSpace(query), 200))

	text := strings.ToLower(message)
	if cause != nil {
		text += " " + strings.ToLower(cause.Error())
	}

	switch {
	case strings.Contains(text, "permission") || strings.Contains(text, "access denied") ||
		strings.Contains(text, "insufficient privileges"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSuggestions(
			"Check the warehouse user's privileges",
			"Verify the configured role can write the silver schema",
		)
	case strings.Contains(text, "timeout") || strings.Contains(text, "deadline exceeded"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions(
			"Increase warehouse.timeout",
			"Check the warehouse size",
		)
	case strings.Contains(text, "does not exist") || strings.Contains(text, "no such table") ||
		strings.Contains(text, "not found"):
		err.Code = ErrCodeSQLObjectNotFound
		_ = err.WithSuggestions(
			"Run 'salesdw schema apply' to create the layer tables",
			"Check the layer schema names in the configuration",
		)
	case strings.Contains(text, "constraint") || strings.Contains(text, "duplicate key"):
		err.Code = ErrCodeSQLConstraint
	case strings.Contains(text, "syntax error"):
		err.Code = ErrCodeSQLSyntax
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity(SeverityWarning).
		AsRecoverable()
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// As is errors.As re-exported so callers importing this package under the
// name "errors" keep access to it.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is re-exported for the same reason.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
