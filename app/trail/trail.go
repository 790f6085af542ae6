// Package trail writes a JSON-lines processing trail, one entry per terminal
// outcome, to a dedicated log file alongside the application log. The trail
// is the flat-file complement to the SQLite journal: grep-friendly and safe
// to ship to operators, since reasons are already redacted upstream.
package trail

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// LogManager owns the trail file and its structured logger.
type LogManager struct {
	logger   *logrus.Logger
	logFile  *os.File
	filePath string
}

// NewLogManager opens (or creates) logDir/processing.log in append mode.
func NewLogManager(logDir string) (*LogManager, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	logFilePath := filepath.Join(logDir, "processing.log")
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trail file: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(logFile)
	logger.SetLevel(logrus.InfoLevel)

	return &LogManager{
		logger:   logger,
		logFile:  logFile,
		filePath: logFilePath,
	}, nil
}

// Close flushes and closes the trail file.
func (lm *LogManager) Close() error {
	if lm.logFile != nil {
		return lm.logFile.Close()
	}
	return nil
}

// Path returns the trail file location.
func (lm *LogManager) Path() string { return lm.filePath }

// LogOutcome appends one trail entry for a file that reached a terminal
// folder.
func (lm *LogManager) LogOutcome(fileName, structure, status, detail string, duration time.Duration) {
	fields := logrus.Fields{
		"file":        fileName,
		"structure":   structure,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}
	if detail != "" {
		fields["detail"] = detail
	}

	if status == "validated" {
		lm.logger.WithFields(fields).Info("file processed")
	} else {
		lm.logger.WithFields(fields).Warn("file rejected")
	}
}

// SetOutput redirects the trail, used by tests to capture entries.
func (lm *LogManager) SetOutput(w io.Writer) { lm.logger.SetOutput(w) }
