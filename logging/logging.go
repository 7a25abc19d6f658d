// Package logging provides the structured logging used by all go-locale
// packages, built around the zerolog library.
//
// Every package obtains its own logger via GetPackageLogger, which tags each
// event with the package name and always resolves the process-wide output,
// level and per-package enablement at call time. Output defaults to a
// human-readable console writer on stderr; file logging with automatic
// rotation can be added via WithLogFile, which is backed by the lumberjack
// package.
//
// Example:
//
//	package main
//
//	import (
//		"github.com/rs/zerolog"
//		"github.com/valentin-kaiser/go-locale/logging"
//	)
//
//	var logger = logging.GetPackageLogger("main")
//
//	func main() {
//		logging.SetLevel(zerolog.DebugLevel)
//		logging.WithLogFile("go-locale.log")
//
//		logger.Info().Str("locale", "en-US").Msg("engine started")
//	}
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu       sync.RWMutex
	level    = zerolog.InfoLevel
	outputs  = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}
	file     *lumberjack.Logger
	disabled = map[string]struct{}{}
)

// Logger is a package-scoped logger handle. It carries no state besides the
// package name and resolves the current global configuration on every call,
// so level and output changes apply to handles created earlier.
type Logger struct {
	pkg string
}

// GetPackageLogger returns a logger for a specific package
func GetPackageLogger(pkg string) *Logger {
	return &Logger{pkg: pkg}
}

// Trace returns a trace level event
func (l *Logger) Trace() *zerolog.Event { return l.current().Trace() }

// Debug returns a debug level event
func (l *Logger) Debug() *zerolog.Event { return l.current().Debug() }

// Info returns an info level event
func (l *Logger) Info() *zerolog.Event { return l.current().Info() }

// Warn returns a warn level event
func (l *Logger) Warn() *zerolog.Event { return l.current().Warn() }

// Error returns an error level event
func (l *Logger) Error() *zerolog.Event { return l.current().Error() }

// Enabled returns false when logging for this package has been disabled
func (l *Logger) Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	_, off := disabled[l.pkg]
	return !off
}

func (l *Logger) current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if _, off := disabled[l.pkg]; off {
		nop := zerolog.Nop()
		return &nop
	}

	logger := zerolog.New(newMultiWriter(outputs...)).
		Level(level).
		With().
		Timestamp().
		Str("package", l.pkg).
		Logger()
	return &logger
}

// SetLevel sets the global log level for all package loggers
func SetLevel(l zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// GetLevel returns the current global log level
func GetLevel() zerolog.Level {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// SetOutput replaces all configured outputs with the given writer
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	outputs = []io.Writer{w}
	file = nil
}

// AddOutput appends an additional writer to the configured outputs
func AddOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	outputs = append(outputs, w)
}

// WithLogFile adds a rotating file writer to the logger outputs.
// It uses the lumberjack package to handle log rotation and file management.
func WithLogFile(path string) {
	mu.Lock()
	defer mu.Unlock()

	file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxAge:     28, // days
		MaxBackups: 10, // number of backups
		Compress:   true,
	}
	outputs = append(outputs, file)
}

// Close closes the rotating log file if one was configured
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if file == nil {
		return nil
	}

	err := file.Close()
	file = nil
	return err
}

// DisablePackage disables logging for a specific package
func DisablePackage(pkg string) {
	mu.Lock()
	defer mu.Unlock()
	disabled[pkg] = struct{}{}
}

// EnablePackage re-enables logging for a previously disabled package
func EnablePackage(pkg string) {
	mu.Lock()
	defer mu.Unlock()
	delete(disabled, pkg)
}

// multiWriter is like io.MultiWriter but continues writing to the remaining
// writers even if one of them fails
type multiWriter struct {
	writers []io.Writer
}

func newMultiWriter(writers ...io.Writer) *multiWriter {
	return &multiWriter{writers: writers}
}

func (mw *multiWriter) Write(p []byte) (n int, err error) {
	var lastErr error
	n = len(p)

	for _, writer := range mw.writers {
		_, writeErr := writer.Write(p)
		if writeErr != nil {
			lastErr = writeErr
		}
	}

	return n, lastErr
}
