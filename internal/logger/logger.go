// Package logger provides process-wide structured logging.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	log  zerolog.Logger
)

// Init configures the global logger. level is one of "debug", "info",
// "warn", "error"; format "json" writes structured JSON (the production
// default), anything else writes a human-readable console format. Safe to
// call multiple times; only the first call takes effect.
func Init(level, format string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

		var w io.Writer = os.Stderr
		if format != "json" {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}

		log = zerolog.New(w).With().Timestamp().Logger()
		log = log.Level(parseLevel(level))
	})
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func ensureInit() {
	once.Do(func() {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	})
}

// Debug logs at debug level with structured key/value fields.
func Debug(msg string, fields map[string]any) {
	ensureInit()
	event(log.Debug(), fields).Msg(msg)
}

// Info logs at info level with structured key/value fields.
func Info(msg string, fields map[string]any) {
	ensureInit()
	event(log.Info(), fields).Msg(msg)
}

// Warn logs at warn level with structured key/value fields.
func Warn(msg string, fields map[string]any) {
	ensureInit()
	event(log.Warn(), fields).Msg(msg)
}

// Error logs at error level with structured key/value fields and an
// optional error value under the "error" key.
func Error(msg string, err error, fields map[string]any) {
	ensureInit()
	ev := log.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	event(ev, fields).Msg(msg)
}

func event(ev *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	return ev
}
