// Package logger holds the process-wide zerolog logger shared by the API
// server and the CLI. Call Init once from main; everything else uses Get or
// Component.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures Init.
type Options struct {
	// Level is trace, debug, info, warn or error. Anything else means info.
	Level string
	// Pretty switches to zerolog's console writer. Leave it off in
	// production so entries stay JSON.
	Pretty bool
	// Output defaults to os.Stdout. The CLI passes os.Stderr.
	Output io.Writer
	// Service, when set, is added to every entry as "service".
	Service string
}

var (
	mu     sync.Mutex
	once   sync.Once
	root   zerolog.Logger
	loaded bool
)

// Init builds the shared logger on its first call. Later calls return the
// logger from the first one and ignore opts.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opts.Output
		if w == nil {
			w = os.Stdout
		}
		if opts.Pretty {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		level := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(level)

		lc := zerolog.New(w).Level(level).With().Timestamp().Caller()
		if opts.Service != "" {
			lc = lc.Str("service", opts.Service)
		}

		mu.Lock()
		root, loaded = lc.Logger(), true
		mu.Unlock()
	})
	return Get()
}

// Get returns the shared logger. It panics before Init.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		panic("logger: Get called before Init")
	}
	return root
}

// Component returns the shared logger with a "component" field.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset drops the shared logger so Init can run again. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	root, loaded = zerolog.Logger{}, false
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
