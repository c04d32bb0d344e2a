// Package logger provides the process-wide leveled logger.
//
// Call sites use printf-style helpers with a bracketed component prefix,
// e.g. logger.Info("[Synth] slot %s validated after %d attempts", id, n).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity.
type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	TraceLevel = logrus.TraceLevel
)

var std = newStd()

func newStd() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// ParseLevel parses a level name: trace, debug, info, warn, error, fatal, panic.
func ParseLevel(s string) (Level, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// SetLevel sets the minimum level that is emitted.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// GetLevel returns the current level.
func GetLevel() Level {
	return std.GetLevel()
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// TeeToFile appends log output to path in addition to stderr.
// The returned closer releases the file.
func TeeToFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	std.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

func Trace(format string, args ...any) { std.Tracef(format, args...) }

func Debug(format string, args ...any) { std.Debugf(format, args...) }

func Info(format string, args ...any) { std.Infof(format, args...) }

func Warn(format string, args ...any) { std.Warnf(format, args...) }

func Error(format string, args ...any) { std.Errorf(format, args...) }

// Fatal logs and exits the process with status 1.
func Fatal(format string, args ...any) { std.Fatalf(format, args...) }
