package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config contains logging settings
type Config struct {
	Level  string
	Format string // "json" or "console"
	Output string // "stdout" or "stderr"
}

// New builds the process logger. It is created once by the command layer
// and handed to components, never stored globally.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := writer(cfg.Output)

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty", "text":
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	default:
		zl = zerolog.New(out)
	}

	return zl.Level(level).With().Timestamp().Str("service", "voxscript").Logger()
}

// Component returns a child logger tagged with a component name
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

func writer(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}
