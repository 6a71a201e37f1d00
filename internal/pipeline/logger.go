// Package pipeline drives the step-orchestration run loop.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger appends timestamped entries to a per-run debug log file. It
// records every prompt sent and response received, is write-only from the
// orchestrator's side, and is safe for concurrent use by parallel sub-tasks.
// A zero-value logger discards everything.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewDebugLogger creates a logger writing to the specified path, creating
// parent directories as needed. If the path is empty, returns a no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &DebugLogger{file: f, path: logPath}, nil
}

// NewDebugLoggerForRun creates a timestamp-named debug log in the given
// output directory, one file per run.
func NewDebugLoggerForRun(outputDir string) (*DebugLogger, error) {
	name := fmt.Sprintf("debug_%s.log", time.Now().Format("20060102_150405"))
	return NewDebugLogger(filepath.Join(outputDir, name))
}

// Log writes a timestamped message to the debug log.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	timestamp := time.Now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
}

// Path returns the log file path, or empty for a no-op logger.
func (l *DebugLogger) Path() string {
	return l.path
}

// Close closes the underlying log file.
func (l *DebugLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
