package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FolderWatcher turns filesystem create events into file paths on a
// single-consumer channel. If the underlying watch source dies it is
// restarted, never fatal: only startup conditions may take the process down.
type FolderWatcher struct {
	folder string
	events chan string
	logger *zap.Logger
}

func NewFolderWatcher(folder string, logger *zap.Logger) *FolderWatcher {
	return &FolderWatcher{
		folder: folder,
		events: make(chan string, 64),
		logger: logger.With(zap.String("component", "watcher")),
	}
}

// Events is the single-consumer stream drained by the intake worker.
func (fw *FolderWatcher) Events() <-chan string { return fw.events }

// ScanExisting queues every .json file already sitting in the watched folder,
// so files dropped while the service was down are not lost. The consumer must
// already be draining before large backlogs are scanned.
func (fw *FolderWatcher) ScanExisting() int {
	entries, err := os.ReadDir(fw.folder)
	if err != nil {
		fw.logger.Error("Failed to scan data folder", zap.Error(err))
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fw.events <- filepath.Join(fw.folder, entry.Name())
		count++
	}
	return count
}

// Start watches until ctx is cancelled, restarting the watch source whenever
// it dies.
func (fw *FolderWatcher) Start(ctx context.Context) {
	for {
		err := fw.watch(ctx)
		if ctx.Err() != nil {
			fw.logger.Info("Watcher stopped")
			return
		}

		fw.logger.Error("Watch source died, restarting", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (fw *FolderWatcher) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(fw.folder); err != nil {
		return fmt.Errorf("watch folder %s: %w", fw.folder, err)
	}

	fw.logger.Info("Watching folder", zap.String("folder", fw.folder))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch event channel closed")
			}
			if !event.Has(fsnotify.Create) || !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			select {
			case fw.events <- event.Name:
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch error channel closed")
			}
			return fmt.Errorf("watch source error: %w", err)
		}
	}
}
