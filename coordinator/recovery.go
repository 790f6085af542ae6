package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/intake"
)

// staleThreshold is how long a file may sit in the processing folder before
// the periodic sweep treats it as abandoned. In-flight files live there for
// seconds, not minutes.
const staleThreshold = 10 * time.Minute

// CrashRecovery restores the terminal-folder invariant across restarts: any
// file found in the processing area was orphaned mid-stage by a prior crash,
// because the in-flight tracker has no cross-run durability.
type CrashRecovery struct {
	processingFolder string
	returnsFolder    string
	logger           *zap.Logger
	metrics          *MetricsCollector
}

func NewCrashRecovery(cfg *Config, logger *zap.Logger, metrics *MetricsCollector) *CrashRecovery {
	return &CrashRecovery{
		processingFolder: cfg.ProcessingFolder,
		returnsFolder:    cfg.ReturnsFolder,
		logger:           logger,
		metrics:          metrics,
	}
}

// RecoverOnStartup moves every regular file left in the processing folder to
// the returns folder and reports the count. Runs before watching begins.
func (cr *CrashRecovery) RecoverOnStartup() int {
	cr.logger.Info("Starting crash recovery")
	count := cr.sweep(nil)
	if count > 0 {
		cr.logger.Info("Recovered interrupted files", zap.Int("count", count))
		if cr.metrics != nil {
			cr.metrics.RecordRecoveredFiles(count)
		}
	}
	cr.logger.Info("Crash recovery completed")
	return count
}

// PeriodicSweep recovers files that have sat in the processing folder beyond
// staleThreshold while the service is running. Adapted safety net; under
// normal operation it finds nothing.
func (cr *CrashRecovery) PeriodicSweep(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-staleThreshold)
			count := cr.sweep(&cutoff)
			if count > 0 {
				cr.logger.Warn("Recovered stale processing files", zap.Int("count", count))
				if cr.metrics != nil {
					cr.metrics.RecordRecoveredFiles(count)
				}
			}
		}
	}
}

// sweep moves regular files in the processing folder to returns. With a
// non-nil cutoff only files modified before it are touched.
func (cr *CrashRecovery) sweep(cutoff *time.Time) int {
	entries, err := os.ReadDir(cr.processingFolder)
	if err != nil {
		cr.logger.Error("Failed to read processing folder", zap.Error(err))
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if cutoff != nil {
			info, err := entry.Info()
			if err != nil || info.ModTime().After(*cutoff) {
				continue
			}
		}

		src := filepath.Join(cr.processingFolder, entry.Name())
		dst := filepath.Join(cr.returnsFolder, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			dst = filepath.Join(cr.returnsFolder, intake.UniqueName(entry.Name()))
		}

		if err := moveFile(src, dst); err != nil {
			cr.logger.Error("Could not move interrupted file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}

		cr.logger.Warn("Moved interrupted processing file to returns",
			zap.String("file", entry.Name()))
		count++
	}

	return count
}

// moveFile renames src to dst, falling back to copy-and-delete when the two
// paths are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
