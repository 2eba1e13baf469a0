package ytdlp

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"mediarelay/internal/extraction"
	"mediarelay/internal/link"
	"mediarelay/internal/media"
	"mediarelay/internal/toolexec"
)

type fakeYtdlp struct {
	t          *testing.T
	stdout     func(target extraction.Target) string
	err        error
	args       []string
	cookiePath string
	cookieBody string
}

func (f *fakeYtdlp) Run(_ context.Context, _ string, args []string) (toolexec.Output, error) {
	f.args = append([]string(nil), args...)
	if i := slices.Index(args, "--cookies"); i >= 0 {
		f.cookiePath = args[i+1]
		data, err := os.ReadFile(f.cookiePath)
		if err != nil {
			f.t.Fatalf("cookie file not readable during run: %v", err)
		}
		f.cookieBody = string(data)
	}
	if f.err != nil {
		return toolexec.Output{}, f.err
	}
	return toolexec.Output{Stdout: []byte(f.stdout(targetFromArgs(args)))}, nil
}

func targetFromArgs(args []string) extraction.Target {
	i := slices.Index(args, "-o")
	tmpl := args[i+1]
	return extraction.Target{Dir: filepath.Dir(tmpl), Stem: strings.TrimSuffix(filepath.Base(tmpl), "_%(autonumber)02d.%(ext)s")}
}

func create(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func reel(t *testing.T) link.Link {
	l, ok := link.Parse("https://www.instagram.com/reel/ABC123/")
	if !ok {
		t.Fatal("parse link")
	}
	return l
}

func TestFetchSingleVideoWithCookies(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeYtdlp{t: t, stdout: func(tg extraction.Target) string {
		path := create(t, filepath.Join(tg.Dir, tg.Stem+"_01.mp4"))
		return "[info] ignored\n" + `{"id":"ABC123","uploader_id":"@creator","description":"Nice clip","track":"Song","artist":"Band","requested_downloads":[{"filepath":"` + path + `"}]}`
	}}
	blob := base64.StdEncoding.EncodeToString([]byte("cookie-data"))
	b := New(Options{CookieBase64: blob, CredentialDir: dir}, WithExecutor(fake))

	result, err := b.Fetch(context.Background(), reel(t), extraction.Target{Dir: dir, Stem: "ABC123-0011aabb"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Kind != media.KindVideo {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if result.Caption != "@creator\nNice clip\n🎵 Song - Band" {
		t.Fatalf("unexpected caption %q", result.Caption)
	}
	if result.Track != "Song" || result.Artist != "Band" || result.IsCollection {
		t.Fatalf("unexpected metadata %+v", result)
	}
	if fake.cookieBody != "cookie-data" {
		t.Fatalf("cookie content = %q", fake.cookieBody)
	}
	if _, err := os.Stat(fake.cookiePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cookie file removed after attempt, stat err %v", err)
	}
	if fake.args[len(fake.args)-1] != "https://www.instagram.com/reel/ABC123/" {
		t.Fatalf("expected url last, got %v", fake.args)
	}
}

func TestFetchPlaylistEntries(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeYtdlp{t: t, stdout: func(tg extraction.Target) string {
		a := create(t, filepath.Join(tg.Dir, tg.Stem+"_01.mp4"))
		b := create(t, filepath.Join(tg.Dir, tg.Stem+"_02.jpg"))
		return `{"_type":"playlist","entries":[{"uploader":"someone","description":"first","requested_downloads":[{"filepath":"` + a + `"}]},{"filename":"` + b + `"}]}`
	}}
	b := New(Options{}, WithExecutor(fake))

	result, err := b.Fetch(context.Background(), reel(t), extraction.Target{Dir: dir, Stem: "S"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(result.Items) != 2 || !result.IsCollection {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Items[1].Ordinal != 2 || result.Items[1].Kind != media.KindPhoto {
		t.Fatalf("unexpected second item %+v", result.Items[1])
	}
	if result.Caption != "@someone\nfirst" {
		t.Fatalf("unexpected caption %q", result.Caption)
	}
	if slices.Contains(fake.args, "--cookies") {
		t.Fatal("did not expect cookies without a blob")
	}
}

func TestFetchFallsBackToGlobWhenPathsMissing(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeYtdlp{t: t, stdout: func(tg extraction.Target) string {
		create(t, filepath.Join(tg.Dir, tg.Stem+"_01.mp4"))
		return `{"id":"x"}`
	}}
	result, err := New(Options{}, WithExecutor(fake)).Fetch(context.Background(), reel(t), extraction.Target{Dir: dir, Stem: "G"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected globbed item, got %+v", result.Items)
	}
}

func TestFetchPropagatesToolError(t *testing.T) {
	dir := t.TempDir()
	blob := base64.StdEncoding.EncodeToString([]byte("c"))
	boom := errors.New("exit status 1")
	fake := &fakeYtdlp{t: t, err: boom}
	_, err := New(Options{CookieBase64: blob, CredentialDir: dir}, WithExecutor(fake)).Fetch(context.Background(), reel(t), extraction.Target{Dir: dir, Stem: "E"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected tool error, got %v", err)
	}
	if _, statErr := os.Stat(fake.cookiePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("expected cookie file removed after failure")
	}
}

func TestFetchRejectsGarbageOutput(t *testing.T) {
	fake := &fakeYtdlp{t: t, stdout: func(extraction.Target) string { return "not json" }}
	if _, err := New(Options{}, WithExecutor(fake)).Fetch(context.Background(), reel(t), extraction.Target{Dir: t.TempDir(), Stem: "X"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestArgs(t *testing.T) {
	args := Args("https://u", extraction.Target{Dir: "/w", Stem: "S"}, "/w/cookies-1.txt")
	want := []string{"-f", "best[filesize<50M]/best", "-o", filepath.Join("/w", "S_%(autonumber)02d.%(ext)s"), "--cookies", "/w/cookies-1.txt"}
	for i := 0; i+1 < len(want); i += 2 {
		idx := slices.Index(args, want[i])
		if idx < 0 || args[idx+1] != want[i+1] {
			t.Fatalf("expected %s %s in %v", want[i], want[i+1], args)
		}
	}
	if redacted := redactCookies(args); slices.Contains(redacted, "/w/cookies-1.txt") {
		t.Fatal("expected cookie path redacted")
	}
}
