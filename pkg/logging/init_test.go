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

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		logType   string
		level     string
		wantError string
	}{
		{"json/info", JSON, "info", ""},
		{"text/debug", Text, "debug", ""},
		{"tint/warn", Tint, "warn", ""},
		{"json/error", JSON, "error", ""},
		{"invalid level", JSON, "bogus", "could not parse log level"},
		{"unknown type", "xml", "info", "unknown logging type: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(&bytes.Buffer{}, tt.logType, tt.level)
			if tt.wantError != "" {
				assert.ErrorContains(t, err, tt.wantError)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, JSON, "warn")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("cleanup incomplete", "target", "WebGL")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "only records at or above the level are written")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "cleanup incomplete", record["msg"])
	assert.Equal(t, "WebGL", record["target"])
	assert.NotContains(t, record, "source", "source is only added at debug level")
}

func TestInitialize_SetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, Initialize(&buf, Text, "debug"))
	slog.Info("found build", "buildNumber", 12)

	assert.Contains(t, buf.String(), "buildNumber=12")
}
