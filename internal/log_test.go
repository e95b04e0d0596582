package internal

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel(" debug ")
	assert.True(t, ok)
	assert.Equal(t, LogLevelDebug, level)

	_, ok = ParseLogLevel("verbose")
	assert.False(t, ok)
}

func TestLoggerLevelsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelWarn).With("ForecastService").WithOutput(log.New(&buf, "", 0))

	logger.Debug("hidden %d", 1)
	logger.Info("hidden too")
	logger.Warn("unit %q not recognized", "parsec")
	logger.Error("boom")

	assert.Equal(t, "[ForecastService] WARN unit \"parsec\" not recognized\n[ForecastService] ERROR boom\n", buf.String())
}

func TestDefaultLoggerFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	assert.Equal(t, LogLevelError, NewDefaultLogger().GetLevel())

	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, LogLevelInfo, NewDefaultLogger().GetLevel())
}
