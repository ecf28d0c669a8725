// Package logger is the process-wide zap logger behind --verbose.
// Errors are always written; everything else only in verbose mode.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)

	mu     sync.RWMutex
	output io.Writer = os.Stderr
	sugar            = build(os.Stderr)
)

// build returns a console logger writing "[LEVEL] message" lines to w,
// filtered by the shared level.
func build(w io.Writer) *zap.SugaredLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LevelKey:   "level",
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + l.CapitalString() + "]")
		},
		ConsoleSeparator: " ",
	})
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)).Sugar()
}

// SetVerbose lowers the threshold to debug, or raises it back to error.
func SetVerbose(v bool) {
	if v {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.ErrorLevel)
}

// IsVerbose reports whether debug lines are written.
func IsVerbose() bool {
	return level.Enabled(zapcore.DebugLevel)
}

// SetOutput redirects all log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	sugar = build(w)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debug logs a printf-style message, shown only in verbose mode.
func Debug(format string, args ...any) { current().Debugf(format, args...) }

// Info logs a printf-style message, shown only in verbose mode.
func Info(format string, args ...any) { current().Infof(format, args...) }

// Warn logs a printf-style message, shown only in verbose mode.
func Warn(format string, args ...any) { current().Warnf(format, args...) }

// Error logs a printf-style message. Errors are always written.
func Error(format string, args ...any) { current().Errorf(format, args...) }

// Section writes a blank line and a "=== name ===" banner in verbose mode.
func Section(name string) {
	if !IsVerbose() {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "\n=== %s ===\n", name)
}

// Sync flushes buffered log entries.
func Sync() error {
	return current().Sync()
}
