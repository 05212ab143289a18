// Package logging provides the process-wide rotating file logger.
// Conversion and discovery are best-effort by design, so parse
// problems are logged here instead of surfacing as errors.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDirName  = ".loglens/logs"
	logFileName = "loglens.log"
	maxSizeMB   = 1
	maxAgeDays  = 14
	maxBackups  = 10
)

// Level represents the log level.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
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

// Logger writes leveled lines to a rotating file and optionally
// mirrors WARN and above to stderr.
type Logger struct {
	mu         sync.Mutex
	out        io.WriteCloser
	logger     *log.Logger
	level      Level
	alsoStderr bool
}

var (
	instance *Logger
	initOnce sync.Once
)

// Get returns the shared logger, creating it on first use. Failure
// to set up the log file degrades to stderr-only logging.
func Get() *Logger {
	initOnce.Do(func() {
		instance = newLogger()
	})
	return instance
}

func newLogger() *Logger {
	l := &Logger{level: INFO, alsoStderr: true}

	home, err := os.UserHomeDir()
	if err != nil {
		l.logger = log.New(os.Stderr, "", 0)
		return l
	}
	dir := filepath.Join(home, logDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.logger = log.New(os.Stderr, "", 0)
		return l
	}

	l.out = &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxAge:     maxAgeDays,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	l.logger = log.New(l.out, "", 0)
	return l
}

// SetLevel adjusts the minimum level written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	line := fmt.Sprintf("%s [%s] %s",
		time.Now().UTC().Format(time.RFC3339),
		level, fmt.Sprintf(format, args...))
	l.logger.Print(line)
	if l.alsoStderr && level >= WARN {
		fmt.Fprintln(os.Stderr, line)
	}
}

// Debugf logs at DEBUG level.
func Debugf(format string, args ...any) { Get().logf(DEBUG, format, args...) }

// Infof logs at INFO level.
func Infof(format string, args ...any) { Get().logf(INFO, format, args...) }

// Warnf logs at WARN level.
func Warnf(format string, args ...any) { Get().logf(WARN, format, args...) }

// Errorf logs at ERROR level.
func Errorf(format string, args ...any) { Get().logf(ERROR, format, args...) }
