package artifacts

import "errors"

var (
	// ErrArtifactExpired reports a lookup for an artifact that is gone or past its deadline.
	ErrArtifactExpired = errors.New("artifact expired")
	// ErrArtifactMissingOnDisk reports a live entry whose file disappeared.
	ErrArtifactMissingOnDisk = errors.New("artifact missing on disk")
	// ErrAlreadyProcessing reports an owner that already has a run in flight.
	ErrAlreadyProcessing = errors.New("already processing")
	// ErrDuplicateArtifact reports an insert with an id that is already cached.
	ErrDuplicateArtifact = errors.New("duplicate artifact id")
)

// ErrCacheClosed reports an insert after the scheduler has shut down.
var ErrCacheClosed = errors.New("artifact cache closed")
