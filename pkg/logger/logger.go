package logger

import (
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota
	// INFO level for general informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger wraps a zap logger together with its adjustable level
type Logger struct {
	level zap.AtomicLevel
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger with the specified log level and format.
// format is "json" or "text"; anything else falls back to json. Only the first
// call takes effect; use SetLevel afterwards.
func Init(level LogLevel, format string) {
	once.Do(func() {
		defaultLogger = newLogger(level, format)
	})
}

func newLogger(level LogLevel, format string) *Logger {
	config := zap.NewProductionConfig()
	if format == "text" {
		config = zap.NewDevelopmentConfig()
		config.Development = false
	}
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())
	config.DisableStacktrace = true

	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		l = zap.NewNop()
	}

	return &Logger{level: config.Level, zap: l, sugar: l.Sugar()}
}

func get() *Logger {
	Init(INFO, "json")
	return defaultLogger
}

func fromZapLevel(l zapcore.Level) LogLevel {
	switch {
	case l <= zapcore.DebugLevel:
		return DEBUG
	case l == zapcore.InfoLevel:
		return INFO
	case l == zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	get().level.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	return fromZapLevel(get().level.Level())
}

// Logr returns a logr.Logger sharing the default zap core, used to inject
// logging into packages that must not depend on this one.
func Logr(name string) logr.Logger {
	return zapr.NewLogger(get().zap.WithOptions(zap.AddCallerSkip(-2))).WithName(name)
}

// Sync flushes buffered log entries
func Sync() {
	_ = get().zap.Sync()
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	switch level {
	case DEBUG:
		l.sugar.Debugf(format, args...)
	case INFO:
		l.sugar.Infof(format, args...)
	case WARN:
		l.sugar.Warnf(format, args...)
	default:
		l.sugar.Errorf(format, args...)
	}
}

func (l *Logger) logWithFields(level LogLevel, fields map[string]interface{}, msg string) {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch level {
	case DEBUG:
		l.sugar.Debugw(msg, kv...)
	case INFO:
		l.sugar.Infow(msg, kv...)
	case WARN:
		l.sugar.Warnw(msg, kv...)
	default:
		l.sugar.Errorw(msg, kv...)
	}
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	get().log(DEBUG, format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	get().log(INFO, format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	get().log(WARN, format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	get().log(ERROR, format, args...)
}

// DebugWithFields logs a debug message with structured fields
func DebugWithFields(fields map[string]interface{}, msg string) {
	get().logWithFields(DEBUG, fields, msg)
}

// InfoWithFields logs an info message with structured fields
func InfoWithFields(fields map[string]interface{}, msg string) {
	get().logWithFields(INFO, fields, msg)
}

// WarnWithFields logs a warning message with structured fields
func WarnWithFields(fields map[string]interface{}, msg string) {
	get().logWithFields(WARN, fields, msg)
}

// ErrorWithFields logs an error message with structured fields
func ErrorWithFields(fields map[string]interface{}, msg string) {
	get().logWithFields(ERROR, fields, msg)
}

// Debugf is an alias for Debug
func Debugf(format string, args ...interface{}) {
	Debug(format, args...)
}

// Infof is an alias for Info
func Infof(format string, args ...interface{}) {
	Info(format, args...)
}

// Warnf is an alias for Warn
func Warnf(format string, args ...interface{}) {
	Warn(format, args...)
}

// Errorf is an alias for Error
func Errorf(format string, args ...interface{}) {
	Error(format, args...)
}
