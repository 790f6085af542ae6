package intake

import "sync"

// InFlightTracker is the in-memory guard against duplicate concurrent
// processing of the same source path. State does not survive restarts; the
// startup recovery sweep compensates for that. Two different paths resolving
// to the same file (symlinks) are not detected. Callers pass absolute paths
// and that is the granularity guaranteed.
type InFlightTracker struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{paths: make(map[string]struct{})}
}

// Acquire marks path as in flight. It returns false and leaves the set
// untouched when the path is already tracked.
func (t *InFlightTracker) Acquire(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.paths[path]; exists {
		return false
	}
	t.paths[path] = struct{}{}
	return true
}

// Release untracks path. Safe to call for a path that was never acquired.
func (t *InFlightTracker) Release(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paths, path)
}

// Len reports how many paths are currently in flight.
func (t *InFlightTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.paths)
}
