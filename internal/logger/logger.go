// Package logger configures the process-wide zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = zerolog.Nop()
)

// ANSI color codes
const (
	gray  = "\x1b[37m"
	blue  = "\x1b[34m"
	cyan  = "\x1b[36m"
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

// Init installs a console logger on stderr. verbose lowers the level to debug.
func Init(verbose bool) {
	InitWriter(os.Stderr, verbose, false)
}

// InitWriter installs a console logger on w. noColor is set for files.
func InitWriter(w io.Writer, verbose, noColor bool) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}
	if !noColor {
		output.FormatLevel = func(i interface{}) string {
			s, _ := i.(string)
			return colorizeLevel(s)
		}
		output.FormatFieldName = func(i interface{}) string {
			return colorize(fmt.Sprint(i)+":", gray)
		}
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(output).Level(level).With().Timestamp().Logger()

	mu.Lock()
	log = l
	mu.Unlock()
}

// ToFile redirects logging to path, for full-screen views that own the terminal.
// The returned closer restores nothing; callers close it on exit.
func ToFile(path string, verbose bool) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	InitWriter(f, verbose, true)
	return f, nil
}

// Get returns the logger instance.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

func colorize(s, color string) string {
	return color + s + reset
}

func colorizeLevel(level string) string {
	switch level {
	case "debug":
		return colorize("DBG", gray)
	case "info":
		return colorize("INF", blue)
	case "warn":
		return colorize("WRN", cyan)
	case "error":
		return colorize("ERR", red)
	default:
		return colorize(level, blue)
	}
}
