package relay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/media"
)

func parkVideo(t *testing.T, h *harness, owner int64, title string) artifacts.Artifact {
	t.Helper()
	path := writeFile(t, filepath.Join(h.dir, "ABC-0badc0de_01.mp4"))
	a, err := h.cache.Put(artifacts.Artifact{Path: path, OwnerID: owner, ContentID: "ABC", Kind: media.KindVideo, AudioTitle: title}, 0)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func callback(owner int64, data string) CallbackAction {
	return CallbackAction{OwnerID: owner, ChatID: owner, CallbackID: "cb-1", MessageID: 10, Data: data}
}

func TestExtractSendsAudioAndDeletesVideo(t *testing.T) {
	h := newHarness(t, singleVideo(t, ""), func(d *Deps, _ *Options) {
		d.Prober = proberFunc(func(context.Context, string) (bool, error) { return true, nil })
	})
	a := parkVideo(t, h, 1, "Song - Band")

	if err := h.svc.HandleCallback(context.Background(), callback(1, "extract:"+a.ID)); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if len(h.gateway.answers) != 1 {
		t.Fatalf("expected callback acknowledged once, got %v", h.gateway.answers)
	}
	if len(h.gateway.media) != 1 || h.gateway.media[0].kind != "audio" || h.gateway.media[0].title != "Song - Band" {
		t.Fatalf("unexpected media %+v", h.gateway.media)
	}
	if filepath.Base(h.gateway.media[0].path) != "ABC-0badc0de_01_audio.mp3" {
		t.Fatalf("unexpected audio path %q", h.gateway.media[0].path)
	}
	if fileExists(a.Path) || fileExists(h.gateway.media[0].path) {
		t.Fatal("expected video and audio removed")
	}
	if !slices.Contains(h.gateway.sentTexts(), MessageAudioSending) {
		t.Fatal("expected sending notice")
	}

	err := h.svc.HandleCallback(context.Background(), callback(1, "extract:"+a.ID))
	if !errors.Is(err, artifacts.ErrArtifactExpired) {
		t.Fatalf("expected repeat delivery to report expired, got %v", err)
	}
	if texts := h.gateway.sentTexts(); texts[len(texts)-1] != MessageArtifactExpired {
		t.Fatalf("last text = %q", texts[len(texts)-1])
	}
	if h.audio.calls != 1 {
		t.Fatalf("audio extracted %d times", h.audio.calls)
	}
}

func TestExtractFailureStillDeletesVideo(t *testing.T) {
	cases := []struct {
		name   string
		prober AudioProber
		audio  error
	}{
		{"no audio stream", proberFunc(func(context.Context, string) (bool, error) { return false, nil }), nil},
		{"ffmpeg fails", nil, errors.New("exit status 1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, singleVideo(t, ""), func(d *Deps, _ *Options) { d.Prober = tc.prober })
			h.audio.err = tc.audio
			a := parkVideo(t, h, 1, "")

			err := h.svc.HandleCallback(context.Background(), callback(1, "extract:"+a.ID))
			if !errors.Is(err, ErrSecondaryActionFailure) {
				t.Fatalf("expected secondary action failure, got %v", err)
			}
			if fileExists(a.Path) {
				t.Fatal("video must be deleted even when extraction fails")
			}
			if h.cache.Len() != 0 {
				t.Fatal("cache entry must be gone")
			}
			if texts := h.gateway.sentTexts(); texts[len(texts)-1] != MessageAudioFailed {
				t.Fatalf("last text = %q", texts[len(texts)-1])
			}
		})
	}
}

func TestDiscardDeletesWithoutExtraction(t *testing.T) {
	h := newHarness(t, singleVideo(t, ""), nil)
	a := parkVideo(t, h, 1, "")

	if err := h.svc.HandleCallback(context.Background(), callback(1, "discard:"+a.ID)); err != nil {
		t.Fatal(err)
	}
	if h.audio.calls != 0 || fileExists(a.Path) {
		t.Fatal("discard must delete the video without extracting")
	}
	if texts := h.gateway.sentTexts(); texts[len(texts)-1] != MessageDiscarded {
		t.Fatalf("last text = %q", texts[len(texts)-1])
	}
}

func TestCallbackMissingOnDisk(t *testing.T) {
	h := newHarness(t, singleVideo(t, ""), nil)
	a := parkVideo(t, h, 1, "")
	if err := os.Remove(a.Path); err != nil {
		t.Fatal(err)
	}
	err := h.svc.HandleCallback(context.Background(), callback(1, "extract:"+a.ID))
	if !errors.Is(err, artifacts.ErrArtifactMissingOnDisk) {
		t.Fatalf("expected missing on disk, got %v", err)
	}
	if h.cache.Len() != 0 {
		t.Fatal("divergent entry must be removed")
	}
	if texts := h.gateway.sentTexts(); texts[len(texts)-1] != MessageArtifactMissing {
		t.Fatalf("last text = %q", texts[len(texts)-1])
	}
}

func TestCallbackAfterExpiry(t *testing.T) {
	now := time.Now()
	h := newHarness(t, singleVideo(t, ""), func(d *Deps, _ *Options) {
		d.Cache = artifacts.NewCache(time.Second, artifacts.WithClock(func() time.Time { return now }))
	})
	a := parkVideo(t, h, 1, "")
	now = now.Add(2 * time.Second)

	err := h.svc.HandleCallback(context.Background(), callback(1, "extract:"+a.ID))
	if !errors.Is(err, artifacts.ErrArtifactExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if fileExists(a.Path) {
		t.Fatal("expired video must be removed")
	}
}

func TestCallbackFromOtherOwnerLeavesArtifact(t *testing.T) {
	h := newHarness(t, singleVideo(t, ""), nil)
	a := parkVideo(t, h, 1, "")

	if err := h.svc.HandleCallback(context.Background(), callback(2, "discard:"+a.ID)); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.cache.Get(a.ID); !ok || !fileExists(a.Path) {
		t.Fatal("artifact must survive a foreign callback")
	}
	if !slices.Equal(h.gateway.answers, []string{MessageNotYours}) {
		t.Fatalf("answers = %q", h.gateway.answers)
	}
}

func TestCallbackUnknownData(t *testing.T) {
	h := newHarness(t, singleVideo(t, ""), nil)
	if err := h.svc.HandleCallback(context.Background(), callback(1, "audio:legacy.mp3")); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.gateway.answers, []string{MessageUnknownAction}) {
		t.Fatalf("answers = %q", h.gateway.answers)
	}
}
