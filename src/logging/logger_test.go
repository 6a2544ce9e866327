package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-collector/src/config"
)

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&config.Config{Source: "dir:/ws", LogLevel: "info", LogFormat: "json"}, &buf)
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "artifact-collector", entry["service"])
	assert.Equal(t, "dir:/ws", entry["source"])
	assert.NotEmpty(t, entry["run_id"])
	assert.Equal(t, "hello", entry["message"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&config.Config{LogLevel: "warn"}, &buf)
	logger.Info().Msg("dropped")
	assert.Empty(t, buf.String())
	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&config.Config{LogLevel: "loud"}, &buf)
	logger.Debug().Msg("dropped")
	logger.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "console"}, &buf)
	logger.Info().Msg("readable")
	assert.Contains(t, buf.String(), "readable")
	assert.Contains(t, buf.String(), "INF")
}
