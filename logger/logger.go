// Package logger configures the process-wide zerolog logger. Components
// grab a tagged sub-logger via For; main calls Init once from config.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu   sync.RWMutex
	root = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init sets the global level, format ("json" or "console") and output
// ("stdout", "stderr", or a file path). Safe to call more than once; the
// last call wins.
func Init(level, format, output string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer
	switch output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		w = f
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(lvl)
	root = zerolog.New(w).With().Timestamp().Logger()
	log.Logger = root
	return nil
}

// For returns a logger tagged with the component name. The pointer return
// keeps chained calls like For("api").Info() addressable.
func For(component string) *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := root.With().Str("component", component).Logger()
	return &l
}
