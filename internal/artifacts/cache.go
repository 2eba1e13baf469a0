package artifacts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
)

// Artifact is a delivered video kept on disk for a follow-up action.
type Artifact struct {
	ID        string
	Path      string
	OwnerID   int64
	ContentID string
	Kind      media.Kind
	// AudioTitle labels audio extracted from this artifact.
	AudioTitle string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// NewID returns a random artifact identifier.
func NewID() string {
	return uuid.NewString()
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for eviction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.NewComponentLogger(logger, "artifacts")
	}
}

// Cache holds artifacts until they expire, are evicted, or are consumed.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]Artifact
	deadlines deadlineHeap
	closed    bool

	defaultTTL time.Duration
	now        func() time.Time
	wake       chan struct{}
	logger     *slog.Logger
}

// NewCache constructs a cache whose entries live for defaultTTL unless Put
// names another duration.
func NewCache(defaultTTL time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]Artifact),
		defaultTTL: defaultTTL,
		now:        time.Now,
		wake:       make(chan struct{}, 1),
		logger:     logging.NewComponentLogger(nil, "artifacts"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put registers a and schedules its expiry ttl from now. A zero ttl uses the
// cache default. An empty ID is filled with NewID. The stamped artifact is
// returned.
func (c *Cache) Put(a Artifact, ttl time.Duration) (Artifact, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if strings.TrimSpace(a.ID) == "" {
		a.ID = NewID()
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Artifact{}, ErrCacheClosed
	}
	if _, exists := c.entries[a.ID]; exists {
		c.mu.Unlock()
		return Artifact{}, ErrDuplicateArtifact
	}
	now := c.now()
	a.CreatedAt = now
	a.ExpiresAt = now.Add(ttl)
	c.entries[a.ID] = a
	c.deadlines.push(deadline{id: a.ID, at: a.ExpiresAt})
	c.mu.Unlock()

	c.signal()
	c.logger.Debug("artifact registered",
		logging.String(logging.FieldArtifactID, a.ID),
		logging.Int64(logging.FieldOwnerID, a.OwnerID),
		logging.Duration("ttl", ttl),
	)
	return a, nil
}

// StartNewRun evicts every artifact belonging to owner and returns how many
// were removed. Call it before a new run so earlier offers are withdrawn.
func (c *Cache) StartNewRun(owner int64) int {
	c.mu.Lock()
	var stale []Artifact
	for id, a := range c.entries {
		if a.OwnerID == owner {
			stale = append(stale, a)
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	for _, a := range stale {
		c.removeFile(a, "superseded")
	}
	return len(stale)
}

// Evict removes id and deletes its file. It reports whether an entry was
// present; evicting twice is a no-op.
func (c *Cache) Evict(id string) bool {
	c.mu.Lock()
	a, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()

	if ok {
		c.removeFile(a, "evicted")
	}
	return ok
}

// Consume claims id for exclusive use. The entry leaves the cache on every
// path, so a second Consume for the same id reports ErrArtifactExpired.
func (c *Cache) Consume(id string) (*Lease, error) {
	c.mu.Lock()
	a, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	now := c.now()
	c.mu.Unlock()

	if !ok {
		return nil, ErrArtifactExpired
	}
	if !now.Before(a.ExpiresAt) {
		c.removeFile(a, "expired")
		return nil, ErrArtifactExpired
	}
	if !fileutil.Exists(a.Path) {
		c.logger.Warn("artifact file vanished before use",
			logging.String(logging.FieldArtifactID, a.ID),
			logging.String("path", a.Path),
			logging.String(logging.FieldEventType, "artifact_missing"),
			logging.String(logging.FieldErrorHint, "check temp dir cleanup jobs"),
			logging.String(logging.FieldImpact, "follow-up action unavailable"),
		)
		return nil, ErrArtifactMissingOnDisk
	}
	return &Lease{artifact: a, logger: c.logger}, nil
}

// Get returns a copy of the live entry for id without claiming it.
func (c *Cache) Get(id string) (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[id]
	return a, ok
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns the live entries ordered by expiry.
func (c *Cache) Snapshot() []Artifact {
	c.mu.Lock()
	out := make([]Artifact, 0, len(c.entries))
	for _, a := range c.entries {
		out = append(out, a)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

// Run drives expirations until ctx is cancelled, then evicts everything left
// and refuses further inserts. Start it exactly once.
func (c *Cache) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		c.expireDue()

		c.mu.Lock()
		next, pending := c.deadlines.peek()
		c.mu.Unlock()

		var fire <-chan time.Time
		if pending {
			wait := next.at.Sub(c.now())
			if wait < 0 {
				wait = 0
			}
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-c.wake:
		case <-fire:
		}
		timer.Stop()
	}
}

// ExpireDue evicts entries whose deadline has passed and returns how many
// were removed. Run calls it on every wake-up.
func (c *Cache) ExpireDue() int {
	return c.expireDue()
}

func (c *Cache) expireDue() int {
	c.mu.Lock()
	now := c.now()
	var due []Artifact
	for {
		next, ok := c.deadlines.peek()
		if !ok || next.at.After(now) {
			break
		}
		c.deadlines.pop()
		a, live := c.entries[next.id]
		if !live || !a.ExpiresAt.Equal(next.at) {
			continue
		}
		delete(c.entries, next.id)
		due = append(due, a)
	}
	c.mu.Unlock()

	for _, a := range due {
		c.removeFile(a, "expired")
	}
	return len(due)
}

func (c *Cache) shutdown() {
	c.mu.Lock()
	c.closed = true
	remaining := make([]Artifact, 0, len(c.entries))
	for _, a := range c.entries {
		remaining = append(remaining, a)
	}
	c.entries = make(map[string]Artifact)
	c.deadlines = nil
	c.mu.Unlock()

	for _, a := range remaining {
		c.removeFile(a, "shutdown")
	}
	if len(remaining) > 0 {
		c.logger.Info("evicted remaining artifacts on shutdown", logging.Int("count", len(remaining)))
	}
}

func (c *Cache) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cache) removeFile(a Artifact, reason string) {
	if err := fileutil.RemoveIfExists(a.Path); err != nil {
		logging.WarnWithContext(c.logger, "artifact file removal failed", "artifact_remove_failed",
			logging.String(logging.FieldArtifactID, a.ID),
			logging.String("path", a.Path),
			logging.String("reason", reason),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check temp dir permissions"),
			logging.String(logging.FieldImpact, "stale file left in workspace until next sweep"),
		)
		return
	}
	c.logger.Debug("artifact removed",
		logging.String(logging.FieldArtifactID, a.ID),
		logging.String("reason", reason),
	)
}
