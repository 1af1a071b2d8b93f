package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Level is the minimum severity that gets written
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	mu     sync.Mutex
	level  = new(slog.LevelVar)
	file   *os.File
	output *slog.Logger = newLogger(io.Discard)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetFile sends log output to the given file, appending to it
func SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
	}
	file = f
	output = newLogger(f)
	return nil
}

// SetOutput sends log output to w. Logging is discarded until either
// SetOutput or SetFile is called.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = newLogger(w)
}

// SetLevel changes the minimum level written
func SetLevel(l Level) {
	level.Set(l)
}

// Close releases the log file, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	output = newLogger(io.Discard)
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func Debug(msg string, fields map[string]any) { log(LevelDebug, msg, fields) }
func Info(msg string, fields map[string]any)  { log(LevelInfo, msg, fields) }
func Warn(msg string, fields map[string]any)  { log(LevelWarn, msg, fields) }
func Error(msg string, fields map[string]any) { log(LevelError, msg, fields) }

func log(l Level, msg string, fields map[string]any) {
	mu.Lock()
	lg := output
	mu.Unlock()

	ctx := context.Background()
	if !lg.Enabled(ctx, l) {
		return
	}

	// sorted so that lines are stable across runs
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	lg.LogAttrs(ctx, l, msg, attrs...)
}
