package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/link"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
)

var (
	// ErrExtractionFailure reports that every backend failed.
	ErrExtractionFailure = errors.New("extraction failed")
	// ErrNoMediaFound reports that every backend failed and at least one
	// finished without producing any media.
	ErrNoMediaFound = errors.New("no media found")
)

// Target names where a backend writes its files. Backends must only create
// files named Stem + suffix inside Dir.
type Target struct {
	Dir  string
	Stem string
}

// Backend fetches media for a link.
type Backend interface {
	Name() string
	Fetch(ctx context.Context, l link.Link, target Target) (media.ExtractionResult, error)
}

// Options configures a Coordinator.
type Options struct {
	// AttemptTimeout bounds each backend call; zero means no bound.
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// Coordinator runs backends in priority order.
type Coordinator struct {
	backends []Backend
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCoordinator constructs a coordinator over backends, highest priority first.
func NewCoordinator(backends []Backend, opts Options) *Coordinator {
	return &Coordinator{
		backends: append([]Backend(nil), backends...),
		timeout:  opts.AttemptTimeout,
		logger:   logging.NewComponentLogger(opts.Logger, "extraction"),
	}
}

// Backends lists backend names in order.
func (c *Coordinator) Backends() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return names
}

// Fetch returns the first accepted result. A result is accepted when it has
// at least one item and every item's file exists.
func (c *Coordinator) Fetch(ctx context.Context, l link.Link, target Target) (media.ExtractionResult, error) {
	logger := logging.WithContext(ctx, c.logger)
	var (
		sawEmpty bool
		failures []error
	)
	for _, backend := range c.backends {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		name := backend.Name()
		backendLogger := logger.With(logging.String(logging.FieldBackend, name))
		started := time.Now()

		result, err := c.attempt(ctx, backend, l, target)
		if err == nil {
			err = verify(result)
		}
		if err == nil {
			if result.Backend == "" {
				result.Backend = name
			}
			backendLogger.Info("extraction succeeded",
				logging.Int("items", len(result.Items)),
				logging.Bool("collection", result.IsCollection),
				logging.Duration("elapsed", time.Since(started)),
			)
			return result, nil
		}

		if errors.Is(err, errEmptyResult) {
			sawEmpty = true
		}
		failures = append(failures, fmt.Errorf("%s: %w", name, err))
		logging.WarnWithContext(backendLogger, "extraction backend failed", "extraction_backend_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "check downloader version and cookie validity"),
			logging.String(logging.FieldImpact, "falling back to the next backend"),
		)
		c.cleanup(backendLogger, result, target)
	}

	sentinel := ErrExtractionFailure
	if sawEmpty {
		sentinel = ErrNoMediaFound
	}
	if len(failures) == 0 {
		return media.ExtractionResult{}, fmt.Errorf("%w: no backends configured", sentinel)
	}
	return media.ExtractionResult{}, fmt.Errorf("%w: %w", sentinel, errors.Join(failures...))
}

var (
	errEmptyResult = errors.New("backend returned no media")
	errMissingFile = errors.New("backend reported a file that does not exist")
)

func (c *Coordinator) attempt(ctx context.Context, backend Backend, l link.Link, target Target) (result media.ExtractionResult, err error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = media.ExtractionResult{}
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return backend.Fetch(attemptCtx, l, target)
}

func verify(result media.ExtractionResult) error {
	if result.Empty() {
		return errEmptyResult
	}
	for _, item := range result.Items {
		if !fileutil.Exists(item.Path) {
			return fmt.Errorf("%w: %s", errMissingFile, item.Path)
		}
	}
	return nil
}

func (c *Coordinator) cleanup(logger *slog.Logger, result media.ExtractionResult, target Target) {
	for _, item := range result.Items {
		if err := fileutil.RemoveIfExists(item.Path); err != nil {
			logger.Debug("remove partial item", logging.String("path", item.Path), logging.Error(err))
		}
	}
	if strings.TrimSpace(target.Dir) == "" || strings.TrimSpace(target.Stem) == "" {
		return
	}
	removed, err := fileutil.RemoveByPrefix(target.Dir, target.Stem)
	if err != nil {
		logger.Debug("remove attempt leftovers", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("removed attempt leftovers", logging.Int("files", removed))
	}
}
