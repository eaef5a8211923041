package slogutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// LineHandler
// =============================================================================

func TestLineHandler_Format(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("unit indexed", "unit", "main.c", "funcs", 3, "ok", true)
	assert.Equal(t, "INFO  unit indexed unit=main.c funcs=3 ok=true\n", buf.String())
}

func TestLineHandler_QuotesAwkwardValues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Warn("index condition",
		"usr", "c:@S@A@F@m#", "msg", "kept 0:1:1, got 0:2:1", "empty", "", "err", errors.New("a=b"))
	assert.Equal(t,
		`WARN  index condition usr=c:@S@A@F@m# msg="kept 0:1:1, got 0:2:1" empty="" err="a=b"`+"\n",
		buf.String())
}

func TestLineHandler_LevelFilter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	logger.Error("also shown")
	assert.Equal(t, "WARN  shown\nERROR also shown\n", buf.String())
}

func TestLineHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug).With("unit", "a.c").WithGroup("cond")
	logger.Debug("conflict", "usr", "c:@F@f#", slog.Group("loc", "line", 3, "col", 5))
	assert.Equal(t, "DEBUG conflict unit=a.c cond.usr=c:@F@f# cond.loc.line=3 cond.loc.col=5\n", buf.String())
}

func TestLineHandler_WithAttrsDoesNotLeak(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	base := NewLogger(&buf, slog.LevelInfo)
	base.With("unit", "a.c").Info("one")
	base.Info("two")
	assert.Equal(t, "INFO  one unit=a.c\nINFO  two\n", buf.String())
}

func TestLineHandler_Timestamps(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, "timestamped", slog.LevelInfo).Info("hello")

	line := strings.TrimSuffix(buf.String(), "\n")
	stamp, rest, ok := strings.Cut(line, " ")
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
	assert.Equal(t, "INFO  hello", rest)
}

// =============================================================================
// Constructors and levels
// =============================================================================

func TestNew_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, "JSON", slog.LevelInfo).Info("hello", "n", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, float64(1), rec["n"])
}

func TestNewDiscardLogger(t *testing.T) {
	t.Parallel()
	logger := NewDiscardLogger().With("unit", "a.c").WithGroup("g")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	logger.Error("dropped")
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" Warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"off":     Silent,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelWarn, LevelFromVerbosity(0, false))
	assert.Equal(t, slog.LevelInfo, LevelFromVerbosity(1, false))
	assert.Equal(t, slog.LevelDebug, LevelFromVerbosity(3, false))
	assert.Equal(t, Silent, LevelFromVerbosity(2, true))
}
