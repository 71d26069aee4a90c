package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// LogLevel represents different log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelSuccess
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarn:    "WARN",
	LevelError:   "ERROR",
	LevelSuccess: "SUCCESS",
}

var levelColors = map[LogLevel]*color.Color{
	LevelDebug:   color.New(color.FgCyan),
	LevelInfo:    color.New(color.FgGreen),
	LevelWarn:    color.New(color.FgYellow),
	LevelError:   color.New(color.FgRed),
	LevelSuccess: color.New(color.FgGreen, color.Bold),
}

var levelEmojis = map[LogLevel]string{
	LevelDebug:   "🐛",
	LevelInfo:    "ℹ️",
	LevelWarn:    "⚠️",
	LevelError:   "❌",
	LevelSuccess: "✅",
}

var callerColor = color.New(color.FgHiBlack)

var (
	registryMu   sync.Mutex
	registry     = make(map[string]*Logger)
	defaultLevel = LevelInfo
	// stderr keeps diagnostics apart from the operator's answers on stdout
	defaultOut io.Writer = os.Stderr
)

// Logger is the main logger struct
type Logger struct {
	mu       sync.Mutex
	minLevel LogLevel
	logger   *log.Logger
	display  string
}

// New creates a new Logger instance
func New(out io.Writer, prefix string, flag int, minLevel LogLevel) *Logger {
	return &Logger{
		minLevel: minLevel,
		logger:   log.New(out, prefix, flag),
	}
}

// ParseLevel maps a config string onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, errors.Errorf("unknown log level %q", s)
}

// SetLevel changes the minimum level of every package logger, including the
// ones created afterwards.
func SetLevel(level LogLevel) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultLevel = level
	for _, l := range registry {
		l.SetLevel(level)
	}
}

// SetOutput redirects every package logger.
func SetOutput(w io.Writer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultOut = w
	for _, l := range registry {
		l.SetOutput(w)
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// Log logs a message at a specific level
func (l *Logger) Log(level LogLevel, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	var callerInfo string
	if level == LevelDebug {
		_, file, line, ok := runtime.Caller(2) // 2 levels up the stack
		if ok {
			parts := strings.Split(file, "/")
			if len(parts) > 2 {
				file = strings.Join(parts[len(parts)-2:], "/")
			}
			callerInfo = fmt.Sprintf("%s:%d", file, line)
		}
	}

	var pkgDisplay string
	if l.display != "" {
		pkgDisplay = l.display + " "
	}

	logLine := fmt.Sprintf("%s %s %s%s",
		levelColors[level].Sprint(levelNames[level]),
		levelEmojis[level],
		pkgDisplay,
		fmt.Sprintf(msg, args...))

	if callerInfo != "" {
		logLine += " " + callerColor.Sprintf("(%s)", callerInfo)
	}

	l.logger.Println(logLine)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.Log(LevelDebug, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.Log(LevelInfo, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.Log(LevelWarn, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.Log(LevelError, msg, args...)
}

// Success logs a success message
func (l *Logger) Success(msg string, args ...interface{}) {
	l.Log(LevelSuccess, msg, args...)
}

// PackageLogger returns the logger registered under pkgName, creating it on
// first use. Loggers obtained this way follow SetLevel and SetOutput.
func PackageLogger(pkgName string, displayName string) *Logger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[pkgName]; ok {
		return l
	}
	l := New(defaultOut, "", log.Ltime, defaultLevel)
	l.display = displayName
	registry[pkgName] = l
	return l
}
