package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(name)
		assert.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("JSON renames error to err", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Level: slog.LevelInfo, Format: "json", Output: &buf})
		logger.Debug("hidden")
		logger.Info("Command failed", "error", errors.New("boom"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "Command failed", line["msg"])
		assert.Equal(t, "boom", line["err"])
		assert.NotContains(t, line, "error")
	})

	t.Run("Text is the default", func(t *testing.T) {
		var buf bytes.Buffer
		New(Options{Level: slog.LevelDebug, Output: &buf}).Debug("Ready", "user_id", "alice")
		assert.Contains(t, buf.String(), "level=DEBUG msg=Ready user_id=alice")
	})
}
