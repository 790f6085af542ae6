package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/journal"
)

// minDiskSpaceMB is the minimum free disk space required to keep accepting
// files.
const minDiskSpaceMB = 100

type HealthChecker struct {
	cfg     *Config
	journal *journal.Journal
	logger  *zap.Logger
}

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  string                 `json:"timestamp"`
	Components map[string]interface{} `json:"components"`
	Intake     journal.Stats          `json:"intake"`
}

func NewHealthChecker(cfg *Config, j *journal.Journal, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		cfg:     cfg,
		journal: j,
		logger:  logger,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().Format(time.RFC3339),
		Components: make(map[string]interface{}),
	}

	// Check filesystem
	fsStatus := h.checkFilesystem()
	response.Components["filesystem"] = fsStatus

	// Check journal
	journalStatus := h.checkJournal()
	response.Components["journal"] = journalStatus

	// Get intake statistics
	stats, err := h.journal.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get intake stats", zap.Error(err))
		stats = journal.Stats{}
	}
	response.Intake = stats

	// Determine overall status
	switch {
	case fsStatus == "unhealthy" || journalStatus == "unhealthy":
		response.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	case fsStatus == "degraded":
		response.Status = "degraded"
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) checkJournal() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.journal.Ping(ctx); err != nil {
		h.logger.Error("Journal health check failed", zap.Error(err))
		return "unhealthy"
	}

	return "healthy"
}

func (h *HealthChecker) checkFilesystem() string {
	// Check that we can write to every working folder
	dirs := []string{
		h.cfg.DataFolder,
		h.cfg.ProcessingFolder,
		h.cfg.ValidatedFolder,
		h.cfg.ReturnsFolder,
		h.cfg.LogsFolder,
	}

	for _, dir := range dirs {
		testFile := filepath.Join(dir, ".health_check")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			h.logger.Error("Filesystem health check failed", zap.String("dir", dir), zap.Error(err))
			return "unhealthy"
		}
		os.Remove(testFile)
	}

	availableMB, err := freeDiskSpaceMB(".")
	if err != nil {
		h.logger.Error("Failed to get disk stats", zap.Error(err))
		return "unhealthy"
	}
	if availableMB < minDiskSpaceMB {
		h.logger.Warn("Low disk space", zap.Uint64("available_mb", availableMB))
		return "degraded"
	}

	return "healthy"
}

// freeDiskSpaceMB reports available disk space at path in megabytes.
func freeDiskSpaceMB(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize) / (1024 * 1024), nil
}
