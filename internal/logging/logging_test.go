package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseZapLevel(LevelDebug))
	assert.Equal(t, zapcore.WarnLevel, parseZapLevel(LevelWarn))
	assert.Equal(t, zapcore.ErrorLevel, parseZapLevel(LevelError))
	assert.Equal(t, zapcore.InfoLevel, parseZapLevel(LevelInfo))
	assert.Equal(t, zapcore.InfoLevel, parseZapLevel(Level("nonsense")))
}

func TestParseZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseZerologLevel(LevelDebug))
	assert.Equal(t, zerolog.WarnLevel, parseZerologLevel(LevelWarn))
	assert.Equal(t, zerolog.ErrorLevel, parseZerologLevel(LevelError))
	assert.Equal(t, zerolog.InfoLevel, parseZerologLevel(LevelInfo))
}

func TestNewControllerLoggerBuildsWithoutError(t *testing.T) {
	logger := NewControllerLogger(LevelDebug, true)
	logger.Info("test message")
}

func TestNewGatewayLoggerDefaultsToJSON(t *testing.T) {
	logger := NewGatewayLogger(LevelInfo, "")
	logger.Info().Msg("test message")
}

func TestNewGatewayLoggerSupportsConsoleFormat(t *testing.T) {
	logger := NewGatewayLogger(LevelInfo, "console")
	logger.Info().Msg("test message")
}
