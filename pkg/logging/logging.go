package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr. Console output is used for humans;
// jsonOutput switches to one JSON object per line.
func New(level string, jsonOutput bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, jsonOutput)
}

func NewWithWriter(w io.Writer, level string, jsonOutput bool) zerolog.Logger {
	out := w
	if !jsonOutput {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
