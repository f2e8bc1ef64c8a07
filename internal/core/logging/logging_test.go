package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	assert.Greater(t, ParseLevel("quiet"), slog.LevelError)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=v")
}

func TestProviderFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", &buf)

	assert.False(t, ProviderFailures(logger, nil))

	err := errors.Join(
		&agentsessions.ProviderError{Provider: "codex", Err: errors.New("permission denied")},
		errors.New("other"),
	)
	assert.True(t, ProviderFailures(logger, err))
	out := buf.String()
	assert.Contains(t, out, "provider=codex")
	assert.Contains(t, out, `error="permission denied"`)
	assert.Contains(t, out, "error=other")
}
