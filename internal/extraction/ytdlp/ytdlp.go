// Package ytdlp fetches media with the yt-dlp command-line downloader.
package ytdlp

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"mediarelay/internal/credentials"
	"mediarelay/internal/extraction"
	"mediarelay/internal/link"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/services"
	"mediarelay/internal/textutil"
	"mediarelay/internal/toolexec"
)

// Name identifies this backend in logs and history.
const Name = "ytdlp"

const formatSelector = "best[filesize<50M]/best"

// Options configures the backend.
type Options struct {
	Binary       string
	CookieBase64 string
	// CredentialDir receives the per-attempt cookie file.
	CredentialDir string
	Logger        *slog.Logger
}

// Option customizes the backend.
type Option func(*Backend)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(b *Backend) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// Backend drives yt-dlp.
type Backend struct {
	binary        string
	cookieBlob    string
	credentialDir string
	exec          toolexec.Executor
	logger        *slog.Logger
}

// New constructs the backend.
func New(opts Options, extra ...Option) *Backend {
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	b := &Backend{
		binary:        binary,
		cookieBlob:    opts.CookieBase64,
		credentialDir: opts.CredentialDir,
		exec:          toolexec.Command{},
		logger:        logging.NewComponentLogger(opts.Logger, "ytdlp"),
	}
	for _, opt := range extra {
		opt(b)
	}
	return b
}

// Name implements extraction.Backend.
func (b *Backend) Name() string { return Name }

// Fetch downloads l into target and reports the files yt-dlp wrote.
func (b *Backend) Fetch(ctx context.Context, l link.Link, target extraction.Target) (media.ExtractionResult, error) {
	scope, err := credentials.Materialize(b.credentialDir, b.cookieBlob)
	if err != nil {
		return media.ExtractionResult{}, err
	}
	defer scope.Close()

	args := Args(l.URL, target, scope.Path())
	logging.WithContext(ctx, b.logger).Debug("running yt-dlp", logging.String("command", toolexec.Describe(b.binary, redactCookies(args))))
	out, err := b.exec.Run(ctx, b.binary, args)
	if err != nil {
		return media.ExtractionResult{}, err
	}

	var meta info
	if err := json.Unmarshal(lastJSONLine(out.Stdout), &meta); err != nil {
		return media.ExtractionResult{}, services.Wrap(services.ErrExternalTool, Name, "parse", "decode info json", err)
	}

	paths := meta.downloadedPaths()
	if len(paths) == 0 {
		paths = globTarget(target)
	}
	result := media.ExtractionResult{
		Items:        media.ItemsFromPaths(paths),
		Caption:      meta.caption(),
		Track:        meta.firstTrack(),
		Artist:       meta.firstArtist(),
		IsCollection: meta.Type == "playlist" || len(paths) > 1,
		Backend:      Name,
	}
	return result, nil
}

// Args builds the yt-dlp command line.
func Args(url string, target extraction.Target, cookieFile string) []string {
	args := []string{
		"--no-simulate",
		"--dump-single-json",
		"--no-progress",
		"--no-warnings",
		"-f", formatSelector,
		"-o", filepath.Join(target.Dir, target.Stem+"_%(autonumber)02d.%(ext)s"),
	}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	return append(args, url)
}

type info struct {
	Type               string     `json:"_type"`
	ID                 string     `json:"id"`
	Description        string     `json:"description"`
	UploaderID         string     `json:"uploader_id"`
	Uploader           string     `json:"uploader"`
	Channel            string     `json:"channel"`
	Track              string     `json:"track"`
	Artist             string     `json:"artist"`
	Filename           string     `json:"filename"`
	RequestedDownloads []download `json:"requested_downloads"`
	Entries            []info     `json:"entries"`
}

type download struct {
	Filepath string `json:"filepath"`
	Filename string `json:"filename"`
}

func (i info) downloadedPaths() []string {
	var paths []string
	seen := map[string]struct{}{}
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	var walk func(info)
	walk = func(node info) {
		for _, d := range node.RequestedDownloads {
			if d.Filepath != "" {
				add(d.Filepath)
			} else {
				add(d.Filename)
			}
		}
		if len(node.RequestedDownloads) == 0 && len(node.Entries) == 0 {
			add(node.Filename)
		}
		for _, entry := range node.Entries {
			walk(entry)
		}
	}
	walk(i)
	return paths
}

func (i info) caption() string {
	username := firstNonEmpty(i.UploaderID, i.Uploader, i.Channel)
	text := i.Description
	if len(i.Entries) > 0 {
		first := i.Entries[0]
		if username == "" {
			username = firstNonEmpty(first.UploaderID, first.Uploader, first.Channel)
		}
		if strings.TrimSpace(text) == "" {
			text = first.Description
		}
	}
	return textutil.FormatCaption(textutil.CaptionParts{
		Username: username,
		Text:     text,
		Track:    i.firstTrack(),
		Artist:   i.firstArtist(),
	})
}

func (i info) firstTrack() string {
	if i.Track != "" || len(i.Entries) == 0 {
		return i.Track
	}
	return i.Entries[0].Track
}

func (i info) firstArtist() string {
	if i.Artist != "" || len(i.Entries) == 0 {
		return i.Artist
	}
	return i.Entries[0].Artist
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// lastJSONLine returns the final non-empty stdout line; yt-dlp prints the
// single JSON document last.
func lastJSONLine(stdout []byte) []byte {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") {
			return []byte(line)
		}
	}
	return []byte(strings.TrimSpace(string(stdout)))
}

func globTarget(target extraction.Target) []string {
	matches, err := filepath.Glob(filepath.Join(target.Dir, target.Stem+"_*"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func redactCookies(args []string) []string {
	out := append([]string(nil), args...)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "--cookies" {
			out[i+1] = "<redacted>"
		}
	}
	return out
}
