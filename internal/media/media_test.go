package media

import (
	"path/filepath"
	"testing"
)

func TestKindFromPath(t *testing.T) {
	tests := map[string]Kind{
		"a.mp4":  KindVideo,
		"a.MOV":  KindVideo,
		"b.webm": KindVideo,
		"c.jpg":  KindPhoto,
		"d.JPEG": KindPhoto,
		"e.webp": KindPhoto,
	}
	for path, want := range tests {
		got, ok := KindFromPath(path)
		if !ok || got != want {
			t.Fatalf("KindFromPath(%q) = %q %v, want %q", path, got, ok, want)
		}
	}
	if _, ok := KindFromPath("meta.json"); ok {
		t.Fatal("expected json to be unknown")
	}
}

func TestItemsFromPathsNumbersKnownFiles(t *testing.T) {
	items := ItemsFromPaths([]string{"/w/x_01.jpg", "/w/x_01.json", "/w/x_02.mp4"})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Ordinal != 1 || items[0].Kind != KindPhoto {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Ordinal != 2 || items[1].Kind != KindVideo {
		t.Fatalf("unexpected second item %+v", items[1])
	}
	res := ExtractionResult{Items: items}
	if res.Empty() || len(res.Paths()) != 2 {
		t.Fatalf("unexpected result helpers: %+v", res)
	}
}

func TestStemAndSibling(t *testing.T) {
	path := filepath.Join("work", "ABC-1234_01.mp4")
	if Stem(path) != "ABC-1234_01" {
		t.Fatalf("Stem = %q", Stem(path))
	}
	if got := Sibling(path, "_audio.mp3"); got != filepath.Join("work", "ABC-1234_01_audio.mp3") {
		t.Fatalf("Sibling = %q", got)
	}
}
