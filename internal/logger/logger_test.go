package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  zerolog.Level
		known bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{"", zerolog.InfoLevel, true},
		{"WARNING", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"off", zerolog.Disabled, true},
		{"chatty", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, known := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}

func TestNewJSONComponent(t *testing.T) {
	var buf bytes.Buffer
	root := New(Options{Level: "info", Format: "json", Out: &buf})

	l := Component(root, "reconcile")
	l.Info().Int("sheets", 2).Msg("started")
	l.Debug().Msg("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "reconcile", entry["component"])
	assert.Equal(t, "started", entry["message"])
	assert.EqualValues(t, 2, entry["sheets"])
}
