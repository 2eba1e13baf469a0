package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/config"
	"mediarelay/internal/fileutil"
	"mediarelay/internal/logging"
	"mediarelay/internal/services"
	"mediarelay/internal/telegram"
)

// Deps are the collaborators the daemon runs.
type Deps struct {
	Cache   *artifacts.Cache
	Handler telegram.Handler
	// Source is required in polling mode.
	Source telegram.UpdateSource
}

// Daemon owns the process lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   *artifacts.Cache
	handler telegram.Handler
	source  telegram.UpdateSource

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time

	// intake guards accepting and handlers so no handler is added after a
	// drain has begun.
	intake    sync.Mutex
	accepting bool
	handlers  sync.WaitGroup
	inFlight  atomic.Int64
	handled   atomic.Int64

	ctx         context.Context
	cancel      context.CancelFunc
	cacheCancel context.CancelFunc
	cacheDone   chan struct{}
	pollDone    chan struct{}
	server      atomic.Pointer[webhookServer]
}

// Status represents daemon runtime information.
type Status struct {
	Running   bool
	Mode      string
	StartedAt time.Time
	InFlight  int64
	Handled   int64
	Artifacts int
	WorkDir   string
	LockPath  string
	Address   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Cache == nil || deps.Handler == nil {
		return nil, errors.New("daemon requires config, artifact cache, and update handler")
	}
	if cfg.Telegram.Mode == config.ModePolling && deps.Source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "init", "polling mode requires an update source", nil)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		cache:    deps.Cache,
		handler:  deps.Handler,
		source:   deps.Source,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, sweeps the workspace, and begins receiving updates.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediarelay instance is already running")
	}

	if err := os.MkdirAll(d.cfg.WorkDir(), 0o755); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("create work dir: %w", err)
	}
	if removed, err := fileutil.SweepDir(d.cfg.WorkDir(), time.Time{}); err != nil {
		logging.WarnWithContext(d.logger, "workspace sweep failed", "workspace_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the temp directory"),
			logging.String(logging.FieldImpact, "stale files from a previous run may remain"),
		)
	} else if removed > 0 {
		d.logger.Info("removed leftover workspace files", logging.Int("count", removed))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	cacheCtx, cacheCancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cacheCancel = cacheCancel
	d.cacheDone = make(chan struct{})
	go func() {
		defer close(d.cacheDone)
		d.cache.Run(cacheCtx)
	}()

	d.intake.Lock()
	d.accepting = true
	d.intake.Unlock()
	d.startedAt = time.Now()

	switch d.cfg.Telegram.Mode {
	case config.ModePolling:
		d.pollDone = make(chan struct{})
		poller := telegram.NewPoller(d.source, config.Seconds(d.cfg.Telegram.PollTimeout), d.logger)
		go func() {
			defer close(d.pollDone)
			if err := poller.Run(d.ctx, d.Dispatch); err != nil {
				logging.ErrorWithContext(d.logger, "poller stopped", "poller_stopped", logging.Error(err))
			}
		}()
	default:
		server := newWebhookServer(d.cfg, d, d.logger)
		if err := server.start(); err != nil {
			d.abortStart()
			return err
		}
		d.server.Store(server)
	}

	d.running.Store(true)
	d.logger.Info("mediarelay daemon started",
		logging.String("mode", d.cfg.Telegram.Mode),
		logging.String("lock", d.lockPath),
		logging.String("work_dir", d.cfg.WorkDir()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	d.intake.Lock()
	d.accepting = false
	d.intake.Unlock()
	d.cancel()
	d.cacheCancel()
	<-d.cacheDone
	_ = d.lock.Unlock()
}

// Dispatch handles u on its own goroutine. Updates arriving while the daemon
// is not accepting are dropped.
func (d *Daemon) Dispatch(u telegram.Update) {
	d.intake.Lock()
	if !d.accepting {
		d.intake.Unlock()
		d.logger.Debug("update dropped during shutdown", logging.Int64("update_id", u.UpdateID))
		return
	}
	d.handlers.Add(1)
	d.intake.Unlock()

	d.inFlight.Add(1)
	go func() {
		defer d.handlers.Done()
		defer d.inFlight.Add(-1)
		defer d.handled.Add(1)
		defer func() {
			if r := recover(); r != nil {
				logging.ErrorWithContext(d.logger, "update handler panicked", "handler_panic",
					logging.Int64("update_id", u.UpdateID),
					logging.Any("panic", r),
				)
			}
		}()

		// In-flight runs are never cancelled by shutdown.
		ctx := services.WithRequestID(context.WithoutCancel(d.ctx), u.RequestID())
		if err := telegram.Dispatch(ctx, d.handler, u); err != nil {
			logging.WithContext(ctx, d.logger).Debug("update handled with error", logging.Error(err))
		}
	}()
}

// Stop stops receiving updates, waits for in-flight handlers, shuts down the
// artifact scheduler, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if server := d.server.Swap(nil); server != nil {
		server.stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.pollDone != nil {
		<-d.pollDone
		d.pollDone = nil
	}

	d.intake.Lock()
	d.accepting = false
	d.intake.Unlock()
	d.handlers.Wait()

	if d.cacheCancel != nil {
		d.cacheCancel()
		<-d.cacheDone
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("mediarelay daemon stopped", logging.Int64("handled", d.handled.Load()))
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:   d.running.Load(),
		Mode:      d.cfg.Telegram.Mode,
		StartedAt: d.startedAt,
		InFlight:  d.inFlight.Load(),
		Handled:   d.handled.Load(),
		Artifacts: d.cache.Len(),
		WorkDir:   d.cfg.WorkDir(),
		LockPath:  d.lockPath,
	}
	if server := d.server.Load(); server != nil {
		status.Address = server.address()
	}
	return status
}
