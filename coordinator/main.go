package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/forward"
	"github.com/redlabs-sc/customer-intake/app/intake"
	"github.com/redlabs-sc/customer-intake/app/journal"
	"github.com/redlabs-sc/customer-intake/app/notify"
	"github.com/redlabs-sc/customer-intake/app/trail"
)

const version = "1.0.0"

func main() {
	figure.NewFigure("intake", "", true).Print()
	color.Cyan("Customer Intake Gate v%s\n", version)

	// Load configuration
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Customer Intake Gate",
		zap.String("version", version),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_folder", cfg.DataFolder))

	// Create working directories
	dirs := []string{
		cfg.DataFolder,
		cfg.ProcessingFolder,
		cfg.ValidatedFolder,
		cfg.ReturnsFolder,
		cfg.LogsFolder,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	// Check disk space before accepting anything
	availableMB, err := freeDiskSpaceMB(".")
	if err != nil {
		logger.Fatal("Failed to check disk space", zap.Error(err))
	}
	if availableMB < minDiskSpaceMB {
		logger.Fatal("Insufficient disk space",
			zap.Uint64("available_mb", availableMB),
			zap.Uint64("required_mb", minDiskSpaceMB))
	}

	// Open the outcome journal
	outcomeJournal, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		logger.Fatal("Failed to open journal", zap.Error(err))
	}
	defer outcomeJournal.Close()

	// Open the processing trail
	processingTrail, err := trail.NewLogManager(cfg.LogsFolder)
	if err != nil {
		logger.Fatal("Failed to open processing trail", zap.Error(err))
	}
	defer processingTrail.Close()

	// Initialize metrics collector
	metrics := NewMetricsCollector(outcomeJournal, logger)

	logger.Info("Intake gate initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start metrics update loop
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateOutcomeMetrics(ctx)
			}
		}
	}()

	// Initialize health checker
	healthChecker := NewHealthChecker(cfg, outcomeJournal, logger)

	// Start health check server
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HealthCheckPort),
		Handler: healthMux,
	}

	go func() {
		logger.Info("Health check server starting", zap.Int("port", cfg.HealthCheckPort))
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health check server failed", zap.Error(err))
		}
	}()

	// Start metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	go func() {
		logger.Info("Metrics server starting", zap.Int("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Perform crash recovery before watching begins
	crashRecovery := NewCrashRecovery(cfg, logger, metrics)
	if count := crashRecovery.RecoverOnStartup(); count > 0 {
		logger.Info("Cleaned up interrupted files from previous run", zap.Int("count", count))
	}
	go crashRecovery.PeriodicSweep(ctx)

	// Wire the pipeline
	pipeline := intake.NewPipeline(cfg.Folders(), cfg.Retry(), intake.Deps{
		Notifier:  notify.NewMailer(cfg.SMTP(), logger),
		Forwarder: forward.NewSender(cfg.ForwardURL, cfg.ForwardAPIKey, cfg.ForwardMaxRetries, logger),
		Recorder:  &outcomeRecorder{journal: outcomeJournal, trail: processingTrail},
		Metrics:   metrics,
	}, logger)

	// Start the watcher and the single intake worker
	watcher := NewFolderWatcher(cfg.DataFolder, logger)
	worker := NewIntakeWorker(watcher.Events(), pipeline, logger)

	go worker.Start(ctx)
	go watcher.Start(ctx)

	// Process files dropped while the service was down
	if count := watcher.ScanExisting(); count > 0 {
		logger.Info("Queued existing files at startup", zap.Int("count", count))
	}

	logger.Info("Customer Intake Gate is fully operational")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	// Graceful shutdown: stop the watch loop, let the in-flight file finish
	cancel()
	if !worker.Wait(30 * time.Second) {
		logger.Warn("Intake worker did not stop within grace period")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down servers...")

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown error", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Intake gate shutdown complete")
}
