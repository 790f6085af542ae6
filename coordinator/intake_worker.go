package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/intake"
)

// IntakeWorker drains file events one at a time. Serialized processing is
// what lets the in-flight tracker and the router's collision resolution work
// without heavier locking.
type IntakeWorker struct {
	events   <-chan string
	pipeline *intake.Pipeline
	logger   *zap.Logger
	done     chan struct{}
}

func NewIntakeWorker(events <-chan string, pipeline *intake.Pipeline, logger *zap.Logger) *IntakeWorker {
	return &IntakeWorker{
		events:   events,
		pipeline: pipeline,
		logger:   logger.With(zap.String("worker", "intake_1")),
		done:     make(chan struct{}),
	}
}

// Start processes events until ctx is cancelled. A file already being
// processed when shutdown arrives runs to completion; cancellation is only
// observed between files.
func (w *IntakeWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("Intake worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Intake worker stopping")
			return
		case path := <-w.events:
			w.pipeline.ProcessFile(context.WithoutCancel(ctx), path)
		}
	}
}

// Wait blocks until the worker loop has exited or the grace period elapses,
// reporting whether shutdown was clean.
func (w *IntakeWorker) Wait(grace time.Duration) bool {
	select {
	case <-w.done:
		return true
	case <-time.After(grace):
		return false
	}
}
