// Package slog lets libraries that log through log/slog write to a zerolog logger.
package slog

import (
	"log/slog"

	"github.com/rs/zerolog"
	slogzerolog "github.com/samber/slog-zerolog/v2"
)

// levelOff is above every slog level, for loggers that are disabled.
const levelOff = slog.LevelError + 4

// New returns a slog.Handler that forwards records to logger. Records below the
// logger's level are dropped before they are converted.
func New(logger zerolog.Logger) slog.Handler {
	return slogzerolog.Option{
		Level:  slogLevel(logger.GetLevel()),
		Logger: &logger,
	}.NewZerologHandler()
}

// Logger returns a *slog.Logger backed by logger.
func Logger(logger zerolog.Logger) *slog.Logger {
	return slog.New(New(logger))
}

func slogLevel(level zerolog.Level) slog.Level {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return slog.LevelDebug
	case zerolog.InfoLevel:
		return slog.LevelInfo
	case zerolog.WarnLevel:
		return slog.LevelWarn
	case zerolog.ErrorLevel:
		return slog.LevelError
	case zerolog.NoLevel:
		return slog.LevelDebug
	default:
		return levelOff
	}
}
