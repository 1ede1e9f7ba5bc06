// Package logging wires the two structured loggers this repository carries:
// zap (bridged into logr for controller-runtime) on the operator side, and
// zerolog on the gateway side — the same split the teacher's own operator
// and backend binaries use.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a subset of the process's --log-level flag values.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// NewControllerLogger builds the logr.Logger controller-runtime's
// ctrl.SetLogger expects, backed by zap.
func NewControllerLogger(level Level, development bool) logr.Logger {
	zapLevel := parseZapLevel(level)

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	zl, err := cfg.Build()
	if err != nil {
		zl = zap.NewNop()
	}
	return zapr.NewLogger(zl)
}

func parseZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewGatewayLogger builds the process-wide zerolog.Logger used by the
// gateway HTTP surface, matching the teacher's setupLogging (JSON by
// default, a console writer when format is "console").
func NewGatewayLogger(level Level, format string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseZerologLevel(level))

	var writer = os.Stdout
	if format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(writer).With().Timestamp().Logger()
}

func parseZerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
