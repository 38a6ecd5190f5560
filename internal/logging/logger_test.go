package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"Console Warn", "console", "warn"},
		{"Text Error", "text", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{Format: tt.format, Level: tt.level, Output: zapcore.AddSync(&buf)})
			require.NoError(t, err)
			logger.Error("heartbeat")
			require.NoError(t, logger.Sync())
			assert.Contains(t, buf.String(), "heartbeat")
		})
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(Config{Format: "json", Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(Config{Format: "xml", Level: "info"})
	assert.Error(t, err)
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "debug", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	logger.Debug("circle loss", zap.String("policy", "bce"), zap.Float64("loss", 0.5))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "circle loss", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "bce", entry["policy"])
	assert.InDelta(t, 0.5, entry["loss"], 1e-12)
	assert.Contains(t, entry, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "warn", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger().Info("nothing")
}
