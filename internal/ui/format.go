// Package ui renders command output for terminals and logs.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"salesdw/pkg/errors"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// SetColor forces colored output on or off.
func SetColor(enabled bool) {
	supportsColor = enabled
}

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ShowHeader writes a boxed title.
func ShowHeader(w io.Writer, title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(w, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(w, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(w, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError writes an error with its code, context and suggestions.
func ShowError(w io.Writer, err error) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(w, "\n%s [%s] %s\n", ColorError("ERROR:"), appErr.Code, appErr.Message)
		if appErr.Cause != nil {
			for _, line := range strings.Split(appErr.Cause.Error(), "\n") {
				fmt.Fprintf(w, "  %s\n", ColorDim(line))
			}
		}
		for _, key := range []string{"batch_id", "table", "check", "sqlstate", "field", "path"} {
			if v, ok := appErr.Context[key]; ok {
				fmt.Fprintf(w, "  %s %v\n", ColorDim(key+":"), v)
			}
		}
		for _, s := range appErr.Suggestions {
			fmt.Fprintf(w, "  %s %s\n", ColorInfo("TIP:"), s)
		}
		return
	}

	fmt.Fprintf(w, "\n%s %s\n", ColorError("ERROR:"), err.Error())
	if suggestion := getSuggestion(err.Error()); suggestion != "" {
		fmt.Fprintf(w, "  %s %s\n", ColorInfo("TIP:"), suggestion)
	}
}

// ShowSuccess displays a success message
func ShowSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ColorInfo("INFO:"), message)
}

// ShowKeyValue writes an aligned "key: value" line.
func ShowKeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %-18s %s\n", ColorDim(key+":"), value)
}

// getSuggestion returns helpful suggestions based on error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "authentication failed") || strings.Contains(lower, "password"):
		return "Check the warehouse username and password, or rerun 'salesdw setup'"
	case strings.Contains(lower, "connection refused"):
		return "Verify the warehouse host and network connectivity"
	case strings.Contains(lower, "no such table") || strings.Contains(lower, "does not exist"):
		return "Run 'salesdw schema apply' to create the layer tables"
	case strings.Contains(lower, "permission denied"):
		return "Ensure the warehouse role can write the silver schema"
	default:
		return ""
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
