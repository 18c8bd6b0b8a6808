package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/chris/pi-settlement/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("JSON By Default", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.LoggingConfig{Level: "info"}).Info("settled", "payment_id", "pay-1")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "settled", entry["msg"])
		assert.Equal(t, "pay-1", entry["payment_id"])
	})

	t.Run("Level Filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"})
		logger.Info("hidden")
		assert.Empty(t, buf.String())

		logger.Warn("shown")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
