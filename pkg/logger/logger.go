package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Config controls the minimum level emitted. Unknown values fall back
// to debug so a typo never silences the app.
type Config struct {
	Level string
}

// Logger wraps slog with a JSON handler on stdout. Methods take a
// message plus alternating key/value pairs.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(cfg *Config) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return &Logger{logger: slog.New(handler)}
}

func (l *Logger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *Logger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }

// With returns a child logger that carries the given attributes on
// every record.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
