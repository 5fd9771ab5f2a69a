// Package audit writes an append-only JSONL record of lifecycle actions.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/link-control/blc/internal/auth"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Code      string    `json:"code"`
	LatencyMs int64     `json:"latencyMs"`
}

// Logger implements the audit logging functionality.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
}

// NewLogger creates a new audit logger writing to audit.jsonl under
// logDir.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, "audit.jsonl")

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
	}, nil
}

// LogAction logs an audit record for a lifecycle action. The acting user
// is taken from the request context when auth middleware populated it.
func (l *Logger) LogAction(ctx context.Context, action string, result string, latency time.Duration) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		User:      auth.UserFromContext(ctx),
		Action:    action,
		Outcome:   result,
		Code:      codeFromResult(result),
		LatencyMs: latency.Milliseconds(),
	}
	l.writeEntry(entry)
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.filePath
}

// writeEntry writes an audit entry to the log file.
func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.file.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
		return
	}

	if err := l.file.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sync audit log: %v\n", err)
	}
}

// codeFromResult maps result strings to standardized codes.
func codeFromResult(result string) string {
	switch {
	case result == "OK" || result == "NOOP":
		return "SUCCESS"
	case strings.Contains(result, "UNAVAILABLE"):
		return "UNAVAILABLE"
	case strings.Contains(result, "BUSY"):
		return "BUSY"
	case strings.Contains(result, "INTERNAL"):
		return "INTERNAL"
	default:
		return "ERROR"
	}
}
