// Package logging configures the process logger and provides leveled helpers on top of the standard log package.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	logFile *os.File
)

// Init routes log output to stderr and, when logPath is non-empty, to an append-only log file.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close releases the log file, if any, and restores stderr output.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// SetOutput redirects log output. Useful for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetVerbose enables or disables debug messages.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether debug messages are printed.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Debugf logs only in verbose mode.
func Debugf(format string, args ...any) {
	if IsVerbose() {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

// Warnf logs a recoverable problem.
func Warnf(format string, args ...any) {
	log.Printf("[WARN] "+format, args...)
}

// Errorf logs a failure that was absorbed rather than returned.
func Errorf(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}
