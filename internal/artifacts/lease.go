package artifacts

import (
	"log/slog"
	"sync"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/logging"
)

// Lease is exclusive ownership of a consumed artifact's file. Close deletes
// the file; it runs at most once.
type Lease struct {
	artifact Artifact
	logger   *slog.Logger
	once     sync.Once
	err      error
}

// Artifact returns the consumed entry.
func (l *Lease) Artifact() Artifact {
	return l.artifact
}

// Path returns the leased file.
func (l *Lease) Path() string {
	return l.artifact.Path
}

// Close deletes the leased file.
func (l *Lease) Close() error {
	l.once.Do(func() {
		l.err = fileutil.RemoveIfExists(l.artifact.Path)
		if l.err != nil && l.logger != nil {
			l.logger.Warn("lease cleanup failed",
				logging.String(logging.FieldArtifactID, l.artifact.ID),
				logging.Error(l.err),
				logging.String(logging.FieldEventType, "lease_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check temp dir permissions"),
				logging.String(logging.FieldImpact, "stale file left in workspace until next sweep"),
			)
		}
	})
	return l.err
}
