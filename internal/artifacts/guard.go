package artifacts

import "sync"

// Guard marks owners with a run in flight. It is not re-entrant.
type Guard struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

// NewGuard constructs an empty guard.
func NewGuard() *Guard {
	return &Guard{busy: make(map[int64]struct{})}
}

// Acquire marks owner busy, or returns ErrAlreadyProcessing.
func (g *Guard) Acquire(owner int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.busy[owner]; held {
		return ErrAlreadyProcessing
	}
	g.busy[owner] = struct{}{}
	return nil
}

// Release clears owner. Releasing an idle owner is a no-op.
func (g *Guard) Release(owner int64) {
	g.mu.Lock()
	delete(g.busy, owner)
	g.mu.Unlock()
}

// Do runs fn while holding owner's slot. The slot is released when fn
// returns or panics.
func (g *Guard) Do(owner int64, fn func() error) error {
	if err := g.Acquire(owner); err != nil {
		return err
	}
	defer g.Release(owner)
	return fn()
}

// Busy reports whether owner currently holds a slot.
func (g *Guard) Busy(owner int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.busy[owner]
	return held
}

// Count returns the number of owners with a run in flight.
func (g *Guard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.busy)
}
