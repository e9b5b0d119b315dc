package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/modpreload/modpreload/pkg/api"
)

// Operational logging for the commands. Build diagnostics don't go through
// here, they are printed by the API with code frames.
var cmdLogger = newLogger(os.Stderr, zerolog.InfoLevel, false)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

func newLogger(w io.Writer, level zerolog.Level, noColor bool) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func zerologLevel(level api.LogLevel) zerolog.Level {
	switch level {
	case api.LogLevelInfo:
		return zerolog.InfoLevel
	case api.LogLevelWarning:
		return zerolog.WarnLevel
	case api.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

func commandLogger(name string) zerolog.Logger {
	return cmdLogger.With().Str("command", name).Logger()
}
