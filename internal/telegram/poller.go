package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mediarelay/internal/logging"
)

// UpdateSource is the long-poll surface of the Bot API. *Client satisfies it.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller receives updates with getUpdates long polling.
type Poller struct {
	source  UpdateSource
	timeout time.Duration
	backoff time.Duration
	logger  *slog.Logger
}

// NewPoller constructs a poller. A zero timeout uses 30 seconds.
func NewPoller(source UpdateSource, timeout time.Duration, logger *slog.Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		source:  source,
		timeout: timeout,
		backoff: 2 * time.Second,
		logger:  logging.NewComponentLogger(logger, "poller"),
	}
}

// Run polls until ctx is cancelled, passing each update to dispatch in
// order. Transient failures back off and retry.
func (p *Poller) Run(ctx context.Context, dispatch func(Update)) error {
	var offset int64
	delay := p.backoff
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logging.WarnWithContext(p.logger, "getUpdates failed", "poll_failed",
				logging.Error(err),
				logging.Duration("retry_in", delay),
				logging.String(logging.FieldErrorHint, "check network reachability and bot token"),
				logging.String(logging.FieldImpact, "updates delayed"),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, time.Minute)
			continue
		}
		delay = p.backoff
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			dispatch(update)
		}
	}
}
