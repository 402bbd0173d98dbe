// Package logging is the process-wide logger. Every package logs through the
// helpers here so that level and output are configured in one place.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			CallerOffset:    1,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "ezsplit",
		})
		l.SetLevel(log.InfoLevel)
		singleton = &logger{l}
	})
	return singleton
}

// SetLevel sets the minimum level by name: debug, info, warn, error or fatal.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	getLogger().SetLevel(lvl)
	return nil
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

// Debug logs a formatted message at debug level.
func Debug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

// Info logs a formatted message at info level.
func Info(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

// Warn logs a formatted message at warn level.
func Warn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

// Error logs a formatted message at error level.
func Error(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

// Fatal logs a formatted message and exits the process.
func Fatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
