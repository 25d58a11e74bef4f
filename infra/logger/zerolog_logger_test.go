package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := zerolog.GlobalLevel()
	SetOutput(&buf)
	require.NoError(t, Setup(cfg))
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		zerolog.SetGlobalLevel(prev)
		_ = Setup(Config{Level: prev.String()})
	})
	return &buf
}

func TestZerologLogger_JSON(t *testing.T) {
	buf := capture(t, Config{Level: "debug", Format: "json"})
	l := New("runner")
	l.Debugw("encoded", map[string]any{"variables": 12})
	l.Infof("solved %s", "pat31.rcp")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "runner", first["component"])
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, 12.0, first["variables"])
	assert.Contains(t, lines[1], "solved pat31.rcp")
}

func TestZerologLogger_LevelFilters(t *testing.T) {
	buf := capture(t, Config{Level: "warn"})
	l := New("runner")
	l.Debugf("hidden")
	l.Infof("hidden")
	l.Warnf("shown")
	l.Errorf("shown too")
	assert.Equal(t, 2, strings.Count(buf.String(), "shown"))
	assert.NotContains(t, buf.String(), "hidden")
}

func TestZerologLogger_Console(t *testing.T) {
	buf := capture(t, Config{Level: "info", Format: "console"})
	New("cli").Infof("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"level"`)
}

func TestSetup_Rejects(t *testing.T) {
	assert.Error(t, Setup(Config{Level: "loud"}))
	assert.Error(t, Setup(Config{Level: "info", Format: "xml"}))
}
