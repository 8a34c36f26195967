package util

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_AutoFormatOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelInfo, Format: FormatAuto, Output: &buf})

	logger.Info("generate complete", "components", 3)
	assert.Contains(t, buf.String(), `"msg":"generate complete"`)
	assert.Contains(t, buf.String(), `"components":3`)
}

func TestNewLogger_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelWarn, Format: FormatText, Output: &buf})

	logger.Info("hidden")
	logger.Warn("formatter not found", "name", "prettier")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=\"formatter not found\" name=prettier")
}

func TestNewLogger_FileCopy(t *testing.T) {
	var out, file bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelDebug, Format: FormatJSON, Output: &out, File: &file})

	logger.With("unit", "button.tsx").Debug("parsed")
	assert.Contains(t, out.String(), `"unit":"button.tsx"`)
	assert.Contains(t, file.String(), "unit=button.tsx")
}
