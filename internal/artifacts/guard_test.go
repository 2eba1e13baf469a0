package artifacts

import (
	"errors"
	"testing"
)

func TestGuardAcquireRelease(t *testing.T) {
	g := NewGuard()
	if err := g.Acquire(1); err != nil {
		t.Fatal(err)
	}
	if err := g.Acquire(1); !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected already processing, got %v", err)
	}
	if err := g.Acquire(2); err != nil {
		t.Fatalf("other owner blocked: %v", err)
	}
	if !g.Busy(1) || g.Count() != 2 {
		t.Fatal("expected both owners busy")
	}
	g.Release(1)
	g.Release(1)
	if g.Busy(1) {
		t.Fatal("expected owner released")
	}
}

func TestGuardDoReleasesOnErrorAndPanic(t *testing.T) {
	g := NewGuard()
	boom := errors.New("boom")
	if err := g.Do(5, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if g.Busy(5) {
		t.Fatal("expected release after error")
	}

	func() {
		defer func() { _ = recover() }()
		_ = g.Do(5, func() error { panic("kaboom") })
	}()
	if g.Busy(5) {
		t.Fatal("expected release after panic")
	}
}

func TestGuardDoRejectsNestedRun(t *testing.T) {
	g := NewGuard()
	err := g.Do(9, func() error {
		return g.Do(9, func() error { return nil })
	})
	if !errors.Is(err, ErrAlreadyProcessing) {
		t.Fatalf("expected nested run rejected, got %v", err)
	}
}
