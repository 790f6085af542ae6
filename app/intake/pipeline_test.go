package intake

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeNotifier struct {
	mu      sync.Mutex
	files   []string
	reasons []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, fileName, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, fileName)
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeForwarder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeForwarder) Send(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (f *fakeRecorder) RecordOutcome(_ context.Context, o Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

type pipelineFixture struct {
	pipeline  *Pipeline
	folders   Folders
	notifier  *fakeNotifier
	forwarder *fakeForwarder
	recorder  *fakeRecorder
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	folders := Folders{
		Data:       filepath.Join(root, "data"),
		Processing: filepath.Join(root, "processing"),
		Validated:  filepath.Join(root, "validated"),
		Returns:    filepath.Join(root, "returns"),
	}
	for _, dir := range []string{folders.Data, folders.Processing, folders.Validated, folders.Returns} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	f := &pipelineFixture{
		folders:   folders,
		notifier:  &fakeNotifier{},
		forwarder: &fakeForwarder{},
		recorder:  &fakeRecorder{},
	}
	f.pipeline = NewPipeline(folders, RetryPolicy{
		AccessMaxAttempts: 3,
		AccessDelay:       10 * time.Millisecond,
		MoveMaxAttempts:   2,
	}, Deps{
		Notifier:  f.notifier,
		Forwarder: f.forwarder,
		Recorder:  f.recorder,
	}, zaptest.NewLogger(t))
	f.pipeline.router.retryDelay = time.Millisecond
	return f
}

func (f *pipelineFixture) drop(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(f.folders.Data, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func listDir(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestProcessFileValidFlat(t *testing.T) {
	f := newPipelineFixture(t)
	content := []byte(`{"OperatorID":"OP12345","CustomerID":"CUST0001","CustomerCardNumber":"4111111111111111"}`)
	path := f.drop(t, "in.json", content)

	assert.True(t, f.pipeline.ProcessFile(context.Background(), path))

	// The original is gone, the validated folder holds a byte-identical copy
	// and the processing folder is empty again.
	assert.NoFileExists(t, path)
	validated := listDir(t, f.folders.Validated)
	require.Len(t, validated, 1)
	got, err := os.ReadFile(filepath.Join(f.folders.Validated, validated[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Empty(t, listDir(t, f.folders.Processing))
	assert.Empty(t, listDir(t, f.folders.Returns))

	// Forwarded exactly once with the routed path, no notification.
	require.Len(t, f.forwarder.paths, 1)
	assert.Equal(t, filepath.Join(f.folders.Validated, validated[0].Name()), f.forwarder.paths[0])
	assert.Empty(t, f.notifier.files)

	require.Len(t, f.recorder.outcomes, 1)
	assert.Equal(t, StatusValidated, f.recorder.outcomes[0].Status)
	assert.Equal(t, "flat", f.recorder.outcomes[0].Structure)
}

func TestProcessFileValidNested(t *testing.T) {
	f := newPipelineFixture(t)
	path := f.drop(t, "in.json", []byte(`{
		"OperatorID": "OP12345",
		"Customer": {"CustomerID": "CUST0001", "CustomerCardNumber": "4111111111111111"}
	}`))

	assert.True(t, f.pipeline.ProcessFile(context.Background(), path))

	require.Len(t, f.recorder.outcomes, 1)
	assert.Equal(t, "nested", f.recorder.outcomes[0].Structure)
}

func TestProcessFileMalformedJSON(t *testing.T) {
	f := newPipelineFixture(t)
	content := []byte(`{this is not json`)
	path := f.drop(t, "bad.json", content)

	assert.False(t, f.pipeline.ProcessFile(context.Background(), path))

	// Rejected file lands in returns byte-identical, with one notification.
	returns := listDir(t, f.folders.Returns)
	require.Len(t, returns, 1)
	got, err := os.ReadFile(filepath.Join(f.folders.Returns, returns[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Empty(t, listDir(t, f.folders.Validated))
	assert.Empty(t, listDir(t, f.folders.Processing))

	require.Len(t, f.notifier.files, 1)
	assert.Contains(t, f.notifier.reasons[0], "invalid JSON format")
	assert.Empty(t, f.forwarder.paths)
}

func TestProcessFileSchemaViolation(t *testing.T) {
	f := newPipelineFixture(t)
	path := f.drop(t, "in.json", []byte(`{
		"OperatorID": "op",
		"Customer": {"CustomerID": "CUST0001", "CustomerCardNumber": "4111111111111111"}
	}`))

	assert.False(t, f.pipeline.ProcessFile(context.Background(), path))

	require.Len(t, listDir(t, f.folders.Returns), 1)
	require.Len(t, f.notifier.files, 1)
	assert.Contains(t, f.notifier.reasons[0], "OperatorID")
	assert.Empty(t, f.forwarder.paths)

	require.Len(t, f.recorder.outcomes, 1)
	assert.Equal(t, StatusRejected, f.recorder.outcomes[0].Status)
}

func TestProcessFileInaccessible(t *testing.T) {
	f := newPipelineFixture(t)
	missing := filepath.Join(f.folders.Data, "never-written.json")

	assert.False(t, f.pipeline.ProcessFile(context.Background(), missing))

	// Never staged, never routed, nobody notified.
	assert.Empty(t, listDir(t, f.folders.Processing))
	assert.Empty(t, listDir(t, f.folders.Validated))
	assert.Empty(t, listDir(t, f.folders.Returns))
	assert.Empty(t, f.notifier.files)
	assert.Equal(t, 0, f.pipeline.tracker.Len(), "tracker entry must be released")
}

func TestProcessFileDuplicateDropped(t *testing.T) {
	f := newPipelineFixture(t)
	path := f.drop(t, "in.json", []byte(`{"OperatorID":"OP12345","CustomerID":"CUST0001","CustomerCardNumber":"4111111111111111"}`))

	abs, err := filepath.Abs(path)
	require.NoError(t, err)

	// First event still in flight: the duplicate is dropped without touching
	// the file.
	require.True(t, f.pipeline.tracker.Acquire(abs))
	assert.False(t, f.pipeline.ProcessFile(context.Background(), path))
	assert.FileExists(t, path)
	f.pipeline.tracker.Release(abs)

	// After release the event processes normally.
	assert.True(t, f.pipeline.ProcessFile(context.Background(), path))
	assert.Len(t, listDir(t, f.folders.Validated), 1)
}

func TestProcessFileConcurrentEvents(t *testing.T) {
	f := newPipelineFixture(t)
	path := f.drop(t, "in.json", []byte(`{"OperatorID":"OP12345","CustomerID":"CUST0001","CustomerCardNumber":"4111111111111111"}`))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.pipeline.ProcessFile(context.Background(), path)
		}()
	}
	wg.Wait()

	// Exactly one terminal-folder file, however the two events interleaved.
	assert.Len(t, listDir(t, f.folders.Validated), 1)
	assert.Empty(t, listDir(t, f.folders.Returns))
	assert.LessOrEqual(t, len(f.forwarder.paths), 1)
}

func TestProcessFileForwardFailureIsFinal(t *testing.T) {
	f := newPipelineFixture(t)
	f.forwarder.err = assert.AnError
	path := f.drop(t, "in.json", []byte(`{"OperatorID":"OP12345","CustomerID":"CUST0001","CustomerCardNumber":"4111111111111111"}`))

	// Forwarding failure does not reclassify the validated file.
	assert.True(t, f.pipeline.ProcessFile(context.Background(), path))
	assert.Len(t, listDir(t, f.folders.Validated), 1)
	assert.Empty(t, listDir(t, f.folders.Returns))
	assert.Empty(t, f.notifier.files)
}
