package link

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		id    string
		shape Shape
		ok    bool
	}{
		{"reel with query", "https://instagram.com/reel/ABC123/?x=1", "ABC123", ShapeReel, true},
		{"post www", "https://www.instagram.com/p/Cx9_-z/", "Cx9_-z", ShapePost, true},
		{"tv mobile", "http://m.instagram.com/tv/TV1", "TV1", ShapeTV, true},
		{"reels plural", "instagram.com/reels/R2D2", "R2D2", ShapeReel, true},
		{"short domain", "https://instagr.am/p/SHORT1", "SHORT1", ShapePost, true},
		{"fragment", "https://instagram.com/p/FRAG#top", "FRAG", ShapePost, true},
		{"user prefix", "https://www.instagram.com/someone/p/NESTED/", "NESTED", ShapePost, true},
		{"embedded in text", "look at this https://instagram.com/reel/EMB/ wow", "EMB", ShapeReel, true},
		{"root", "https://instagram.com/", "", "", false},
		{"marker without id", "https://instagram.com/p/", "", "", false},
		{"profile", "https://instagram.com/someone", "", "", false},
		{"other domain", "https://example.com/p/ABC", "", "", false},
		{"lookalike domain", "https://notinstagram.com/p/ABC", "", "", false},
		{"plain text", "hello there", "", "", false},
		{"empty", "", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.text)
			if ok != tc.ok {
				t.Fatalf("Parse(%q) ok = %v, want %v", tc.text, ok, tc.ok)
			}
			if !ok {
				return
			}
			if got.ContentID != tc.id {
				t.Fatalf("ContentID = %q, want %q", got.ContentID, tc.id)
			}
			if got.Shape != tc.shape {
				t.Fatalf("Shape = %q, want %q", got.Shape, tc.shape)
			}
			if IsSupported(tc.text) != tc.ok {
				t.Fatal("IsSupported disagrees with Parse")
			}
		})
	}
}

func TestParseCanonicalURL(t *testing.T) {
	got, ok := Parse("https://m.instagram.com/reels/ABC123/?igsh=xyz")
	if !ok {
		t.Fatal("expected link")
	}
	if got.URL != "https://www.instagram.com/reel/ABC123/" {
		t.Fatalf("URL = %q", got.URL)
	}
	if got.Raw != "https://m.instagram.com/reels/ABC123/?igsh=xyz" {
		t.Fatalf("Raw = %q", got.Raw)
	}
}

func TestClassify(t *testing.T) {
	if _, err := Classify("nope"); !errors.Is(err, ErrLinkNotRecognized) {
		t.Fatalf("expected ErrLinkNotRecognized, got %v", err)
	}
	if l, err := Classify("https://instagram.com/p/OK1"); err != nil || l.ContentID != "OK1" {
		t.Fatalf("unexpected result: %+v %v", l, err)
	}
}
