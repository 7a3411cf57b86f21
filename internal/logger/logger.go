// Package logger configures structured JSON logging for every component.
// Each entry is one JSON object per line carrying ts, level and msg.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.MessageFieldName = "msg"
	zerolog.ErrorFieldName = "error"
}

// tsHook stamps entries in a fixed location so log timestamps match the
// deployment's configured time zone.
type tsHook struct {
	loc *time.Location
}

func (h tsHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("ts", time.Now().In(h.loc).Format(time.RFC3339Nano))
}

// New builds a JSON logger writing to w.
func New(w io.Writer, loc *time.Location) zerolog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	return zerolog.New(w).Hook(tsHook{loc: loc})
}

// Init replaces the global logger with a stdout JSON logger at info level.
func Init(loc *time.Location) {
	InitWriter(os.Stdout, loc, zerolog.InfoLevel)
}

// InitWriter replaces the global logger with one writing entries at level
// and above to w.
func InitWriter(w io.Writer, loc *time.Location, level zerolog.Level) {
	log.Logger = New(w, loc).Level(level)
}

// Component returns the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
