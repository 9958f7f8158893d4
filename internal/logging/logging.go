package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger: console output, RFC3339 timestamps, and the
// component name stamped on every event.
func New(component string, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
