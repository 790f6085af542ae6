package trail

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutcomeWritesJSONLine(t *testing.T) {
	lm, err := NewLogManager(t.TempDir())
	require.NoError(t, err)
	defer lm.Close()

	var buf bytes.Buffer
	lm.SetOutput(&buf)

	lm.LogOutcome("abcd1234_in.json", "flat", "validated", "", 42*time.Millisecond)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abcd1234_in.json", entry["file"])
	assert.Equal(t, "flat", entry["structure"])
	assert.Equal(t, "validated", entry["status"])
	assert.Equal(t, float64(42), entry["duration_ms"])
	assert.Equal(t, "info", entry["level"])
	assert.NotContains(t, entry, "detail")
}

func TestLogOutcomeRejectionCarriesDetail(t *testing.T) {
	lm, err := NewLogManager(t.TempDir())
	require.NoError(t, err)
	defer lm.Close()

	var buf bytes.Buffer
	lm.SetOutput(&buf)

	lm.LogOutcome("ffff0000_bad.json", "unknown", "rejected", "invalid JSON format", 0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "invalid JSON format", entry["detail"])
	assert.Equal(t, "warning", entry["level"])
}

func TestNewLogManagerCreatesTrailFile(t *testing.T) {
	dir := t.TempDir()
	lm, err := NewLogManager(dir)
	require.NoError(t, err)
	defer lm.Close()

	assert.FileExists(t, lm.Path())
}
