package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"

	"mediarelay/internal/services"
	"mediarelay/internal/toolexec"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Height: 720},
			{CodecType: "video", Height: 1080},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "12.5",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 2 {
		t.Fatalf("expected 2 video streams, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.Height() != 1080 {
		t.Fatalf("unexpected height: %d", result.Height())
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestHasAudio(t *testing.T) {
	var gotArgs []string
	exec := toolexec.ExecutorFunc(func(_ context.Context, binary string, args []string) (toolexec.Output, error) {
		if binary != "ffprobe-test" {
			t.Fatalf("unexpected binary %q", binary)
		}
		gotArgs = args
		return toolexec.Output{Stdout: []byte(`{"streams":[{"codec_type":"video"},{"codec_type":"audio"}],"format":{"duration":"3.0"}}`)}, nil
	})
	prober := New("ffprobe-test", WithExecutor(exec))
	ok, err := prober.HasAudio(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("HasAudio: %v", err)
	}
	if !ok {
		t.Fatal("expected audio stream")
	}
	if gotArgs[len(gotArgs)-1] != "/tmp/clip.mp4" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestInspectErrors(t *testing.T) {
	bad := New("", WithExecutor(toolexec.ExecutorFunc(func(context.Context, string, []string) (toolexec.Output, error) {
		return toolexec.Output{Stdout: []byte("not json")}, nil
	})))
	if _, err := bad.Inspect(context.Background(), "clip.mp4"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if _, err := bad.Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
	boom := errors.New("boom")
	failing := New("", WithExecutor(toolexec.ExecutorFunc(func(context.Context, string, []string) (toolexec.Output, error) {
		return toolexec.Output{}, boom
	})))
	if _, err := failing.HasAudio(context.Background(), "clip.mp4"); !errors.Is(err, boom) {
		t.Fatalf("expected executor error, got %v", err)
	}
}
