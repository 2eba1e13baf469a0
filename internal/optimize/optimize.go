// Package optimize shrinks downloaded media until it fits the delivery size
// ceiling, walking a ladder of increasingly aggressive video presets.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/media/ffmpeg"
	"mediarelay/internal/services"
)

// ErrOversizeAfterCompression reports media that still exceeds the ceiling
// after every compression attempt.
var ErrOversizeAfterCompression = errors.New("oversize after compression")

// OversizeError carries the last measured size of media that could not be
// brought under the ceiling.
type OversizeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("%s: %.1f MB exceeds %.1f MB", ErrOversizeAfterCompression, fileutil.MegaBytes(e.Size), fileutil.MegaBytes(e.Limit))
}

// Is matches ErrOversizeAfterCompression.
func (e *OversizeError) Is(target error) bool {
	return target == ErrOversizeAfterCompression
}

// SizeMB returns the last measured size in mebibytes.
func (e *OversizeError) SizeMB() float64 {
	return fileutil.MegaBytes(e.Size)
}

// Step is one compression preset. MaxHeight of zero keeps the source height.
type Step struct {
	CRF          int
	MaxHeight    int
	AudioBitrate string
}

// Transcoder performs the re-encodes. *ffmpeg.Client satisfies it.
type Transcoder interface {
	CompressVideo(ctx context.Context, input, output string, opts ffmpeg.VideoOptions) error
	CompressPhoto(ctx context.Context, input, output string, quality int) error
}

// Options configures an Optimizer.
type Options struct {
	// Limit is the size ceiling in bytes.
	Limit        int64
	Ladder       []Step
	PhotoQuality int
	// AttemptTimeout bounds each transcoder run; zero means no bound.
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// Outcome describes the file to deliver.
type Outcome struct {
	Path       string
	Size       int64
	Compressed bool
}

// Optimizer fits media items under the ceiling.
type Optimizer struct {
	transcoder Transcoder
	limit      int64
	ladder     []Step
	quality    int
	timeout    time.Duration
	logger     *slog.Logger
}

// New constructs an optimizer.
func New(transcoder Transcoder, opts Options) *Optimizer {
	return &Optimizer{
		transcoder: transcoder,
		limit:      opts.Limit,
		ladder:     append([]Step(nil), opts.Ladder...),
		quality:    opts.PhotoQuality,
		timeout:    opts.AttemptTimeout,
		logger:     logging.NewComponentLogger(opts.Logger, "optimizer"),
	}
}

// Limit returns the ceiling in bytes.
func (o *Optimizer) Limit() int64 {
	return o.limit
}

// Optimize returns item unchanged when it already fits. Otherwise it
// re-encodes: on success the original is deleted and the compressed file is
// returned; when nothing fits, an *OversizeError is returned and the original
// is left in place. At most one temporary output exists at a time.
func (o *Optimizer) Optimize(ctx context.Context, item media.Item) (Outcome, error) {
	size, err := fileutil.Size(item.Path)
	if err != nil {
		return Outcome{}, services.Wrap(services.ErrNotFound, "optimizer", "stat", item.Path, err)
	}
	if size <= o.limit {
		return Outcome{Path: item.Path, Size: size}, nil
	}

	logger := logging.WithContext(ctx, o.logger).With(
		logging.String("path", item.Path),
		logging.String("kind", string(item.Kind)),
		logging.Float64("size_mb", fileutil.MegaBytes(size)),
	)
	logger.Info("media exceeds size ceiling, compressing", logging.Float64("limit_mb", fileutil.MegaBytes(o.limit)))

	if item.Kind == media.KindPhoto {
		output := media.Sibling(item.Path, "_c.jpg")
		return o.attemptLoop(ctx, logger, item.Path, size, 1, func(int) string { return output }, func(ctx context.Context, _ int, out string) error {
			return o.transcoder.CompressPhoto(ctx, item.Path, out, o.quality)
		})
	}

	return o.attemptLoop(ctx, logger, item.Path, size, len(o.ladder), func(i int) string {
		return media.Sibling(item.Path, "_c"+strconv.Itoa(i+1)+".mp4")
	}, func(ctx context.Context, i int, out string) error {
		step := o.ladder[i]
		return o.transcoder.CompressVideo(ctx, item.Path, out, ffmpeg.VideoOptions{
			CRF:          step.CRF,
			MaxHeight:    step.MaxHeight,
			AudioBitrate: step.AudioBitrate,
		})
	})
}

func (o *Optimizer) attemptLoop(
	ctx context.Context,
	logger *slog.Logger,
	original string,
	originalSize int64,
	attempts int,
	outputFor func(int) string,
	run func(context.Context, int, string) error,
) (Outcome, error) {
	lastSize := originalSize
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Outcome{}, services.Wrap(services.ErrTransient, "optimizer", "compress", "cancelled", err)
		}
		output := outputFor(i)
		attemptLogger := logger.With(logging.Int("attempt", i+1), logging.String("output", output))

		err := o.runAttempt(ctx, i, output, run)
		if err != nil {
			_ = fileutil.RemoveIfExists(output)
			logging.WarnWithContext(attemptLogger, "compression attempt failed", "compression_attempt_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffmpeg output and codec support"),
				logging.String(logging.FieldImpact, "falling back to the next preset"),
			)
			continue
		}
		size, err := fileutil.Size(output)
		if err != nil {
			_ = fileutil.RemoveIfExists(output)
			logging.WarnWithContext(attemptLogger, "compression produced no output", "compression_no_output",
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to the next preset"),
			)
			continue
		}
		lastSize = size
		if size <= o.limit {
			if err := fileutil.RemoveIfExists(original); err != nil {
				attemptLogger.Warn("remove original after compression", logging.Error(err))
			}
			attemptLogger.Info("compression fit size ceiling", logging.Float64("size_mb", fileutil.MegaBytes(size)))
			return Outcome{Path: output, Size: size, Compressed: true}, nil
		}
		attemptLogger.Debug("compressed output still too large", logging.Float64("size_mb", fileutil.MegaBytes(size)))
		_ = fileutil.RemoveIfExists(output)
	}
	return Outcome{}, &OversizeError{Path: original, Size: lastSize, Limit: o.limit}
}

func (o *Optimizer) runAttempt(ctx context.Context, i int, output string, run func(context.Context, int, string) error) error {
	attemptCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return run(attemptCtx, i, output)
}
