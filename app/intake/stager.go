package intake

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Stager moves input files into and out of the processing area. It is
// stateless; the pipeline owns the lifecycle of each staged file.
type Stager struct {
	logger *zap.Logger
}

func NewStager(logger *zap.Logger) *Stager {
	return &Stager{logger: logger.With(zap.String("component", "stager"))}
}

// WaitForAccess polls until path can be opened for a 1-byte read, up to
// maxAttempts attempts spaced delay apart. This is the primary defense
// against reading a file still being written by the producer.
func (s *Stager) WaitForAccess(path string, maxAttempts int, delay time.Duration) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := os.Stat(path); err != nil {
			s.logger.Debug("file does not exist yet",
				zap.String("path", path),
				zap.Int("attempt", attempt))
			time.Sleep(delay)
			continue
		}

		f, err := os.Open(path)
		if err != nil {
			s.logger.Debug("file not accessible yet",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(delay)
			continue
		}

		buf := make([]byte, 1)
		_, err = f.Read(buf)
		f.Close()
		// An empty file reads EOF and is still accessible.
		if err != nil && !errors.Is(err, io.EOF) {
			s.logger.Debug("file not readable yet",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(delay)
			continue
		}
		return true
	}
	return false
}

// Stage copies src into the processing area at dst, creating the destination
// directory if needed, then removes src. A copy failure aborts the whole
// stage. A failed delete of the original is logged but does not abort:
// the bytes are already safely duplicated, and a duplicate is acceptable
// where data loss is not.
func (s *Stager) Stage(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create processing directory: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copy to processing area: %w", err)
	}
	s.logger.Debug("staged file", zap.String("src", src), zap.String("dst", dst))

	if err := os.Remove(src); err != nil {
		s.logger.Error("unable to remove original file",
			zap.String("path", src),
			zap.Error(err))
	}
	return nil
}

// Cleanup removes the staged copy. Failures are logged, never returned, so
// the caller's exit path is never blocked.
func (s *Stager) Cleanup(staged string) {
	if _, err := os.Stat(staged); err != nil {
		return
	}
	if err := os.Remove(staged); err != nil {
		s.logger.Error("failed to clean up staged file",
			zap.String("path", staged),
			zap.Error(err))
		return
	}
	s.logger.Debug("cleaned up staged file", zap.String("path", staged))
}

func copyFile(src, dst string) error {
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
	return out.Close()
}
