package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/link"
	"mediarelay/internal/media"
)

type scriptedBackend struct {
	name   string
	calls  int
	fetch  func(ctx context.Context, target Target) (media.ExtractionResult, error)
	seenCt context.Context
}

func (s *scriptedBackend) Name() string { return s.name }

func (s *scriptedBackend) Fetch(ctx context.Context, _ link.Link, target Target) (media.ExtractionResult, error) {
	s.calls++
	s.seenCt = ctx
	return s.fetch(ctx, target)
}

func writeItem(t *testing.T, target Target, suffix string) media.Item {
	t.Helper()
	path := filepath.Join(target.Dir, target.Stem+suffix)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	kind, _ := media.KindFromPath(path)
	return media.Item{Path: path, Kind: kind, Ordinal: 1}
}

func testLink() link.Link {
	l, _ := link.Parse("https://instagram.com/reel/ABC123/")
	return l
}

func TestFetchFirstSuccessWins(t *testing.T) {
	target := Target{Dir: t.TempDir(), Stem: "ABC123-deadbeef"}
	first := &scriptedBackend{name: "first", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		return media.ExtractionResult{Items: []media.Item{writeItem(t, target, "_01.mp4")}, Caption: "hi"}, nil
	}}
	second := &scriptedBackend{name: "second", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		t.Fatal("second backend should not run")
		return media.ExtractionResult{}, nil
	}}
	c := NewCoordinator([]Backend{first, second}, Options{})

	result, err := c.Fetch(context.Background(), testLink(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Backend != "first" || len(result.Items) != 1 || result.Caption != "hi" {
		t.Fatalf("unexpected result %+v", result)
	}
	if second.calls != 0 {
		t.Fatal("second backend invoked")
	}
}

func TestFetchFallsBackAfterErrorAndPanic(t *testing.T) {
	target := Target{Dir: t.TempDir(), Stem: "ABC123-deadbeef"}
	failing := &scriptedBackend{name: "failing", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		writeItem(t, target, "_01.mp4.part")
		return media.ExtractionResult{}, errors.New("403 forbidden")
	}}
	panicking := &scriptedBackend{name: "panicking", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		panic("nil map")
	}}
	working := &scriptedBackend{name: "working", fetch: func(_ context.Context, tg Target) (media.ExtractionResult, error) {
		matches, _ := filepath.Glob(filepath.Join(tg.Dir, tg.Stem+"*"))
		if len(matches) != 0 {
			t.Fatalf("leftovers from earlier attempt: %v", matches)
		}
		return media.ExtractionResult{Items: []media.Item{writeItem(t, tg, "_01.jpg")}}, nil
	}}
	c := NewCoordinator([]Backend{failing, panicking, working}, Options{})

	result, err := c.Fetch(context.Background(), testLink(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Backend != "working" {
		t.Fatalf("unexpected backend %q", result.Backend)
	}
	if failing.calls != 1 || panicking.calls != 1 || working.calls != 1 {
		t.Fatal("expected each backend exactly once")
	}
}

func TestFetchAllFailReportsExtractionFailure(t *testing.T) {
	boom := &scriptedBackend{name: "a", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		return media.ExtractionResult{}, errors.New("boom")
	}}
	missing := &scriptedBackend{name: "b", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		return media.ExtractionResult{Items: []media.Item{{Path: "/nonexistent/file.mp4"}}}, nil
	}}
	c := NewCoordinator([]Backend{boom, missing}, Options{})

	_, err := c.Fetch(context.Background(), testLink(), Target{Dir: t.TempDir(), Stem: "s"})
	if !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if errors.Is(err, ErrNoMediaFound) {
		t.Fatal("did not expect no-media classification")
	}
}

func TestFetchEmptyResultReportsNoMedia(t *testing.T) {
	empty := &scriptedBackend{name: "empty", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		return media.ExtractionResult{}, nil
	}}
	boom := &scriptedBackend{name: "boom", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		return media.ExtractionResult{}, errors.New("boom")
	}}
	c := NewCoordinator([]Backend{empty, boom}, Options{})

	_, err := c.Fetch(context.Background(), testLink(), Target{Dir: t.TempDir(), Stem: "s"})
	if !errors.Is(err, ErrNoMediaFound) {
		t.Fatalf("expected no media found, got %v", err)
	}
	if boom.calls != 1 {
		t.Fatal("expected fallback after empty result")
	}
}

func TestFetchAppliesAttemptTimeout(t *testing.T) {
	slow := &scriptedBackend{name: "slow", fetch: func(ctx context.Context, _ Target) (media.ExtractionResult, error) {
		<-ctx.Done()
		return media.ExtractionResult{}, ctx.Err()
	}}
	target := Target{Dir: t.TempDir(), Stem: "s"}
	fast := &scriptedBackend{name: "fast", fetch: func(ctx context.Context, tg Target) (media.ExtractionResult, error) {
		if ctx.Err() != nil {
			t.Fatal("second attempt inherited expired context")
		}
		return media.ExtractionResult{Items: []media.Item{writeItem(t, tg, "_01.mp4")}}, nil
	}}
	c := NewCoordinator([]Backend{slow, fast}, Options{AttemptTimeout: 20 * time.Millisecond})

	result, err := c.Fetch(context.Background(), testLink(), target)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Backend != "fast" {
		t.Fatalf("unexpected backend %q", result.Backend)
	}
	if _, ok := slow.seenCt.Deadline(); !ok {
		t.Fatal("expected attempt deadline")
	}
}

func TestFetchRemovesReportedItemsOnPartialFailure(t *testing.T) {
	target := Target{Dir: t.TempDir(), Stem: "s"}
	var kept string
	partial := &scriptedBackend{name: "partial", fetch: func(context.Context, Target) (media.ExtractionResult, error) {
		item := writeItem(t, target, "_01.mp4")
		kept = item.Path
		return media.ExtractionResult{Items: []media.Item{item, {Path: filepath.Join(target.Dir, "s_02.mp4")}}}, nil
	}}
	c := NewCoordinator([]Backend{partial}, Options{})
	if _, err := c.Fetch(context.Background(), testLink(), target); !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected failure, got %v", err)
	}
	if fileutil.Exists(kept) {
		t.Fatal("expected partial download removed")
	}
}

func TestFetchWithoutBackends(t *testing.T) {
	c := NewCoordinator(nil, Options{})
	if _, err := c.Fetch(context.Background(), testLink(), Target{}); !errors.Is(err, ErrExtractionFailure) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
}
