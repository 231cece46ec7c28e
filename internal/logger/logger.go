package logger

import (
	"strings"
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output encodings.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects the level and encoding. Zero values mean info and console.
type Options struct {
	Level  string
	Format string
}

func (o Options) normalized() Options {
	o.Level = strings.ToLower(strings.TrimSpace(o.Level))
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Level == "" {
		o.Level = InfoLevel
	}
	if o.Format == "" {
		o.Format = FormatConsole
	}
	return o
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process logger. Only the first call's options are used.
func Get(opts Options) *Logger {
	once.Do(func() {
		globalLogger = New(opts)
	})
	return globalLogger
}

// New builds a standalone stdout logger. Unknown levels fall back to debug
// and unknown formats to console.
func New(opts Options) *Logger {
	return newZapLogger(opts.normalized(), stdout)
}

// ValidLevel reports whether level is one of the known level names.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return true
	}
	return false
}

// ValidFormat reports whether format is console or json.
func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole, FormatJSON:
		return true
	}
	return false
}
