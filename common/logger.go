package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name to a LogLevel, case-insensitively.
// Unknown names map to LevelInfo.
func ParseLevel(name string) LogLevel {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "WARNING" {
		return LevelWarn
	}
	for level, levelName := range levelNames {
		if levelName == name {
			return level
		}
	}
	return LevelInfo
}

// AppLogger is a leveled logger for the application.
// Console output goes to stderr so that stdout stays free for converted
// documents. The optional log file rotates by size while it is written.
type AppLogger struct {
	mu      sync.Mutex
	level   LogLevel
	console io.Writer
	file    *rotatingFile

	logDir      string
	maxFileSize int64
	maxBackups  int
}

// LogConfig holds configuration options for the logger.
type LogConfig struct {
	Level      LogLevel
	EnableFile bool
	// Dir overrides the log directory (default ~/.config/wgconv/logs).
	Dir         string
	MaxFileSize int64 // in bytes, default 5MB
	MaxBackups  int   // number of rotated files to keep, default 5
	// Output overrides the console writer (default os.Stderr).
	Output io.Writer
}

var (
	defaultLogger *AppLogger
	loggerOnce    sync.Once
)

func newAppLogger(console io.Writer) *AppLogger {
	return &AppLogger{
		level:       LevelInfo,
		console:     console,
		maxFileSize: defaultMaxFileSize,
		maxBackups:  defaultMaxBackups,
	}
}

// GetLogger returns the process-wide logger.
func GetLogger() *AppLogger {
	loggerOnce.Do(func() {
		defaultLogger = newAppLogger(os.Stderr)
	})
	return defaultLogger
}

// InitLogger applies config to the process-wide logger.
// Call it once, early in main.
func InitLogger(config LogConfig) error {
	logger := GetLogger()

	logger.mu.Lock()
	logger.level = config.Level
	if config.Output != nil {
		logger.console = config.Output
	}
	if config.MaxFileSize > 0 {
		logger.maxFileSize = config.MaxFileSize
	}
	if config.MaxBackups > 0 {
		logger.maxBackups = config.MaxBackups
	}
	if config.Dir != "" {
		logger.logDir = config.Dir
	}
	logger.mu.Unlock()

	if config.EnableFile {
		return logger.EnableFileLogging()
	}
	return nil
}

// SetLevel sets the minimum log level.
func (l *AppLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum log level.
func (l *AppLogger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput replaces the console writer. An open log file keeps
// receiving messages.
func (l *AppLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// EnableFileLogging mirrors every message into wgconv.log inside the log
// directory.
func (l *AppLogger) EnableFileLogging() error {
	l.mu.Lock()
	dir := l.logDir
	maxSize, maxBackups := l.maxFileSize, l.maxBackups
	l.mu.Unlock()

	if dir == "" {
		if dir = GetLogDir(); dir == "" {
			return fmt.Errorf("could not determine log directory")
		}
	}

	file, err := openRotatingFile(filepath.Join(dir, LogFileName), maxSize, maxBackups)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.logDir = dir
	return nil
}

// GetLogDir returns the default log directory path.
func GetLogDir() string {
	dir, err := GetConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "logs")
}

func (l *AppLogger) log(level LogLevel, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	caller := "???"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	entry := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().Format("2006/01/02 15:04:05"), level, caller, msg)

	io.WriteString(l.console, entry)
	if l.file != nil {
		if _, err := io.WriteString(l.file, entry); err != nil {
			fmt.Fprintf(l.console, "log file write failed, disabling file output: %v\n", err)
			l.file.Close()
			l.file = nil
		}
	}
}

// Debug logs a debug message.
func (l *AppLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an informational message.
func (l *AppLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *AppLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *AppLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Close stops file output. Console logging keeps working.
func (l *AppLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Shorthand functions for the default logger.

// LogDebug logs a debug message to the default logger.
func LogDebug(msg string, args ...interface{}) {
	GetLogger().Debug(msg, args...)
}

// LogInfo logs an info message to the default logger.
func LogInfo(msg string, args ...interface{}) {
	GetLogger().Info(msg, args...)
}

// LogWarn logs a warning message to the default logger.
func LogWarn(msg string, args ...interface{}) {
	GetLogger().Warn(msg, args...)
}

// LogError logs an error message to the default logger.
func LogError(msg string, args ...interface{}) {
	GetLogger().Error(msg, args...)
}

// CloseLogger closes the default logger's file.
func CloseLogger() error {
	return GetLogger().Close()
}
