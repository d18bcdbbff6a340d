package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseLevel_Names(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func Test_Logger_WithModuleTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "debug").WithModule("t_abc")
	l.Debug("registered", "path", "/tmp/t_abc.nbt")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "registered", rec["msg"])
	assert.Equal(t, "t_abc", rec["module"])
	assert.Equal(t, "/tmp/t_abc.nbt", rec["path"])
}

func Test_Logger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func Test_NopLogger_Discards(t *testing.T) {
	l := NopLogger()
	l.Error("nothing happens")

	var nilLogger *Logger
	nilLogger.Info("nil receivers are ignored")
}
