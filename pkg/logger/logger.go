// Package logger configures the process-wide zerolog instance. Subsystems
// log through zerolog's global log package; Log exists for main and for
// building tagged subloggers.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// Log is the global logger instance.
var Log zerolog.Logger

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	Log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: consoleTimeFormat,
	}).Level(zerolog.InfoLevel).With().Timestamp().Caller().Logger()
}

// Component returns a child logger tagged with the subsystem name.
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

// SetLevel adjusts the global log level. Accepts a zerolog level name or a
// server mode: "debug" enables debug logging, "release" and "test" stay at
// info. Anything else logs a warning and keeps info.
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		switch levelStr {
		case "release", "test":
			level = zerolog.InfoLevel
		default:
			Log.Warn().Str("level", levelStr).Msg("unrecognized log level, keeping info")
			level = zerolog.InfoLevel
		}
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
}
