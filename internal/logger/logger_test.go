package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetOutputFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	t.Cleanup(func() { log = zerolog.Nop() })

	Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	Warn().Str("resource", "projects").Msg("fetch failed")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "projects", entry["resource"])
	assert.Equal(t, "fetch failed", entry["message"])
}

func TestWithAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	t.Cleanup(func() { log = zerolog.Nop() })

	l := With("query")
	l.Debug().Msg("hit")
	assert.Contains(t, buf.String(), `"component":"query"`)
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "testdeck.log")
	require.NoError(t, InitLogger(Config{LogFile: path, LogLevel: "info"}))
	t.Cleanup(func() { log = zerolog.Nop() })

	Info().Msg("started")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}

func TestInitLoggerWithoutFileIsSilent(t *testing.T) {
	require.NoError(t, InitLogger(Config{}))
	assert.NotPanics(t, func() { Error().Msg("dropped") })
}
