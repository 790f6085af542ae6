// Package intake implements the file intake and validation pipeline: the
// in-flight tracker, the stage-then-commit file transfer, terminal-folder
// routing with collision resolution, and the per-file orchestration that ties
// them together. Every detected file ends in exactly one terminal folder,
// exactly once.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/redlabs-sc/customer-intake/app/schema"
)

// Folders holds the four working directories of the pipeline.
type Folders struct {
	Data       string
	Processing string
	Validated  string
	Returns    string
}

// RetryPolicy bounds the pipeline's blocking waits.
type RetryPolicy struct {
	AccessMaxAttempts int
	AccessDelay       time.Duration
	MoveMaxAttempts   int
}

// Terminal statuses recorded for each processed file.
const (
	StatusValidated = "validated"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// Outcome describes one file's terminal result.
type Outcome struct {
	FileName     string
	OriginalPath string
	Structure    string
	Status       string
	Detail       string
	Duration     time.Duration
}

// Notifier delivers failure notifications to operators. It is never invoked
// for validated files.
type Notifier interface {
	NotifyFailure(ctx context.Context, fileName, reason string) error
}

// Forwarder transmits a validated file downstream. Its retry policy is its
// own; a forwarding failure never reclassifies an already-validated file.
type Forwarder interface {
	Send(ctx context.Context, path string) error
}

// Recorder persists terminal outcomes for auditing.
type Recorder interface {
	RecordOutcome(ctx context.Context, o Outcome)
}

// Metrics receives pipeline observations.
type Metrics interface {
	RecordFileProcessed(structure, status string)
	RecordDuplicateDropped()
	RecordStageDuration(stage string, d time.Duration)
	SetInFlight(n int)
}

// Deps are the pipeline's collaborators. Nil entries are replaced with no-ops
// so partial wirings (tests, dry runs) stay valid.
type Deps struct {
	Notifier  Notifier
	Forwarder Forwarder
	Recorder  Recorder
	Metrics   Metrics
}

// Pipeline drives each detected file through stage, parse, validate, route
// and notify/forward. It exclusively owns the in-flight set and each staged
// file's lifecycle; the stager and router are stateless services.
type Pipeline struct {
	folders   Folders
	retry     RetryPolicy
	tracker   *InFlightTracker
	stager    *Stager
	router    *Router
	notifier  Notifier
	forwarder Forwarder
	recorder  Recorder
	metrics   Metrics
	logger    *zap.Logger
}

func NewPipeline(folders Folders, retry RetryPolicy, deps Deps, logger *zap.Logger) *Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Forwarder == nil {
		deps.Forwarder = noopForwarder{}
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	return &Pipeline{
		folders:   folders,
		retry:     retry,
		tracker:   NewInFlightTracker(),
		stager:    NewStager(logger),
		router:    NewRouter(logger),
		notifier:  deps.Notifier,
		forwarder: deps.Forwarder,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		logger:    logger.With(zap.String("component", "pipeline")),
	}
}

// ProcessFile drives one file from detection to a terminal folder and returns
// true when it reached the validated folder. All failures are contained: the
// tracker entry and the staged copy are released on every exit path, and
// nothing propagates out to halt the watch loop.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if !p.tracker.Acquire(path) {
		p.logger.Debug("already processing, dropping duplicate event", zap.String("path", path))
		p.metrics.RecordDuplicateDropped()
		return false
	}
	p.metrics.SetInFlight(p.tracker.Len())
	defer func() {
		p.tracker.Release(path)
		p.metrics.SetInFlight(p.tracker.Len())
	}()

	start := time.Now()
	fileName := filepath.Base(path)
	stagedName := UniqueName(fileName)
	stagedPath := filepath.Join(p.folders.Processing, stagedName)

	if !p.stager.WaitForAccess(path, p.retry.AccessMaxAttempts, p.retry.AccessDelay) {
		p.logger.Error("cannot access file after multiple attempts", zap.String("path", path))
		return false
	}

	if err := p.stager.Stage(path, stagedPath); err != nil {
		p.logger.Error("failed to stage file", zap.String("path", path), zap.Error(err))
		return false
	}
	defer p.stager.Cleanup(stagedPath)

	return p.processStaged(ctx, path, stagedPath, stagedName, start)
}

// processStaged drives a staged file to its terminal folder.
func (p *Pipeline) processStaged(ctx context.Context, originalPath, stagedPath, stagedName string, start time.Time) bool {
	rec, status, reason := p.parseAndValidate(stagedPath, stagedName)
	if rec == nil {
		p.fail(ctx, failure{
			originalPath: originalPath,
			stagedPath:   stagedPath,
			stagedName:   stagedName,
			status:       status,
			reason:       reason,
			start:        start,
		})
		return false
	}

	destPath, err := p.router.Route(stagedPath, p.folders.Validated, stagedName, p.retry.MoveMaxAttempts)
	if err != nil {
		p.logger.Error("failed to move file to validated folder",
			zap.String("file", stagedName),
			zap.Error(err))
		return false
	}

	structure := string(rec.Customer.Structure)
	elapsed := time.Since(start)
	p.logger.Info("validated file",
		zap.String("file", stagedName),
		zap.String("structure", structure),
		zap.String("operator_id", rec.OperatorID),
		zap.String("customer_card", rec.Customer.Masked()))
	p.metrics.RecordFileProcessed(structure, StatusValidated)
	p.metrics.RecordStageDuration("process", elapsed)
	p.recorder.RecordOutcome(ctx, Outcome{
		FileName:     stagedName,
		OriginalPath: originalPath,
		Structure:    structure,
		Status:       StatusValidated,
		Duration:     elapsed,
	})

	if err := p.forwarder.Send(ctx, destPath); err != nil {
		// Already routed to validated; forwarding failure is final here.
		p.logger.Error("failed to forward validated file",
			zap.String("file", stagedName),
			zap.Error(err))
	}
	return true
}

// parseAndValidate is the orchestrator boundary for unexpected faults: a
// panic anywhere in parse or validation is recovered here and reported as a
// failure terminal, so one file can never take the watch loop down. A nil
// record means failure, with status and reason describing it.
func (p *Pipeline) parseAndValidate(stagedPath, stagedName string) (rec *schema.Record, status, reason string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("unexpected failure while processing file",
				zap.String("file", stagedName),
				zap.Any("cause", r))
			rec = nil
			status = StatusFailed
			reason = fmt.Sprintf("unexpected error: %v", r)
		}
	}()

	raw, err := loadJSON(stagedPath)
	if err != nil {
		return nil, StatusRejected, fmt.Sprintf("invalid JSON format: %v", err)
	}

	p.logger.Debug("processing data",
		zap.String("file", stagedName),
		zap.Any("data", schema.Sanitize(raw)))

	rec, err = schema.Validate(raw)
	if err != nil {
		return nil, StatusRejected, fmt.Sprintf("invalid JSON structure: %v", err)
	}
	return rec, StatusValidated, ""
}

type failure struct {
	originalPath string
	stagedPath   string
	stagedName   string
	status       string
	reason       string
	start        time.Time
}

// fail routes the staged file to the returns folder, records the outcome and
// sends exactly one notification. Collaborator errors are logged only.
func (p *Pipeline) fail(ctx context.Context, f failure) {
	if _, err := p.router.Route(f.stagedPath, p.folders.Returns, f.stagedName, p.retry.MoveMaxAttempts); err != nil {
		p.logger.Error("failed to move file to returns folder",
			zap.String("file", f.stagedName),
			zap.Error(err))
	}

	p.logger.Warn("invalid file",
		zap.String("file", f.stagedName),
		zap.String("reason", f.reason))

	elapsed := time.Since(f.start)
	p.metrics.RecordFileProcessed("unknown", f.status)
	p.metrics.RecordStageDuration("process", elapsed)
	p.recorder.RecordOutcome(ctx, Outcome{
		FileName:     f.stagedName,
		OriginalPath: f.originalPath,
		Structure:    "unknown",
		Status:       f.status,
		Detail:       f.reason,
		Duration:     elapsed,
	})

	if err := p.notifier.NotifyFailure(ctx, f.stagedName, f.reason); err != nil {
		p.logger.Error("failed to send error notification",
			zap.String("file", f.stagedName),
			zap.Error(err))
	}
}

func loadJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyFailure(context.Context, string, string) error { return nil }

type noopForwarder struct{}

func (noopForwarder) Send(context.Context, string) error { return nil }

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(context.Context, Outcome) {}

type noopMetrics struct{}

func (noopMetrics) RecordFileProcessed(string, string)        {}
func (noopMetrics) RecordDuplicateDropped()                   {}
func (noopMetrics) RecordStageDuration(string, time.Duration) {}
func (noopMetrics) SetInFlight(int)                           {}
