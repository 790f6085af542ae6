package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Router moves a staged file into its terminal folder. It copies rather than
// renames so moves work across devices, and it never overwrites: a name
// collision at the destination retargets to a fresh unique name.
type Router struct {
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		logger:     logger.With(zap.String("component", "router")),
		retryDelay: time.Second,
	}
}

// Route copies staged into folder under name, retrying the whole attempt,
// collision check included, up to maxAttempts times. It returns the
// destination path actually written, which may differ from folder/name when a
// collision was resolved. The staged copy is left in place for the caller's
// cleanup regardless of outcome.
//
// The existence check and the copy are not atomic. That gap is benign while
// file processing is single-worker; it must be revisited before this pipeline
// is ever parallelized.
func (r *Router) Route(staged, folder, name string, maxAttempts int) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		dest := filepath.Join(folder, name)
		if _, err := os.Stat(dest); err == nil {
			alt := UniqueName(name)
			r.logger.Debug("destination exists, using alternative name",
				zap.String("folder", folder),
				zap.String("name", alt))
			dest = filepath.Join(folder, alt)
		}

		if err := copyFile(staged, dest); err != nil {
			lastErr = err
			r.logger.Error("failed to route file",
				zap.String("dest", dest),
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(r.retryDelay)
			continue
		}

		r.logger.Debug("routed file", zap.String("dest", dest))
		return dest, nil
	}
	return "", fmt.Errorf("route %s to %s after %d attempts: %w",
		filepath.Base(staged), folder, maxAttempts, lastErr)
}
