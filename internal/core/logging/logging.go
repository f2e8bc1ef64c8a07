// Package logging builds the structured logger shared by the CLI, the
// watcher and the MCP server. Output goes to stderr so command output on
// stdout stays machine-readable.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text logger at the named level writing to out, or to stderr
// when out is nil.
func New(level string, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stderr
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel maps a config or flag value to a level; unknown values mean info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "quiet", "off":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// ProviderFailures logs each provider failure carried by err and reports
// whether anything was logged.
func ProviderFailures(logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}
	var failures []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	} else {
		failures = []error{err}
	}
	for _, f := range failures {
		logger.Warn("provider scan failed", providerAttrs(f)...)
	}
	return len(failures) > 0
}
