// Package gallerydl fetches media with the gallery-dl command-line downloader.
// It handles carousels and photo posts that yt-dlp cannot.
package gallerydl

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediarelay/internal/credentials"
	"mediarelay/internal/extraction"
	"mediarelay/internal/fileutil"
	"mediarelay/internal/link"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/textutil"
	"mediarelay/internal/toolexec"
)

// Name identifies this backend in logs and history.
const Name = "gallerydl"

// Options configures the backend.
type Options struct {
	Binary        string
	CookieBase64  string
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

// Backend drives gallery-dl.
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
		binary = "gallery-dl"
	}
	b := &Backend{
		binary:        binary,
		cookieBlob:    opts.CookieBase64,
		credentialDir: opts.CredentialDir,
		exec:          toolexec.Command{},
		logger:        logging.NewComponentLogger(opts.Logger, "gallerydl"),
	}
	for _, opt := range extra {
		opt(b)
	}
	return b
}

// Name implements extraction.Backend.
func (b *Backend) Name() string { return Name }

// Fetch downloads every item of l into target.
func (b *Backend) Fetch(ctx context.Context, l link.Link, target extraction.Target) (media.ExtractionResult, error) {
	scope, err := credentials.Materialize(b.credentialDir, b.cookieBlob)
	if err != nil {
		return media.ExtractionResult{}, err
	}
	defer scope.Close()

	args := Args(l.URL, target, scope.Path())
	out, err := b.exec.Run(ctx, b.binary, args)
	if err != nil {
		return media.ExtractionResult{}, err
	}

	var paths []string
	var meta sidecar
	for _, path := range ParsePaths(out.Stdout) {
		if !strings.HasPrefix(filepath.Base(path), target.Stem) {
			logging.WithContext(ctx, b.logger).Debug("ignoring foreign output path", logging.String("path", path))
			continue
		}
		if meta.empty() {
			meta = readSidecar(path)
		}
		if err := fileutil.RemoveIfExists(path + ".json"); err != nil {
			logging.WithContext(ctx, b.logger).Debug("remove metadata sidecar", logging.Error(err))
		}
		paths = append(paths, path)
	}

	items := media.ItemsFromPaths(paths)
	return media.ExtractionResult{
		Items: items,
		Caption: textutil.FormatCaption(textutil.CaptionParts{
			Username: meta.username(),
			Text:     meta.Description,
		}),
		IsCollection: len(items) > 1,
		Backend:      Name,
	}, nil
}

// Args builds the gallery-dl command line.
func Args(url string, target extraction.Target, cookieFile string) []string {
	args := []string{
		"--write-metadata",
		"-D", target.Dir,
		"-f", target.Stem + "_{num:>02}.{extension}",
	}
	if cookieFile != "" {
		args = append(args, "--cookies", cookieFile)
	}
	return append(args, url)
}

// ParsePaths reads the file paths gallery-dl prints, one per line. Lines for
// files that were already present are prefixed with "# ".
func ParsePaths(stdout []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "# "))
		if line == "" || !filepath.IsAbs(line) {
			continue
		}
		paths = append(paths, line)
	}
	return paths
}

type sidecar struct {
	Username    string `json:"username"`
	Owner       string `json:"owner"`
	Fullname    string `json:"fullname"`
	Description string `json:"description"`
}

func (s sidecar) empty() bool {
	return s.Username == "" && s.Owner == "" && s.Description == ""
}

func (s sidecar) username() string {
	if s.Username != "" {
		return s.Username
	}
	return s.Owner
}

func readSidecar(path string) sidecar {
	data, err := os.ReadFile(path + ".json")
	if err != nil {
		return sidecar{}
	}
	var s sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return sidecar{}
	}
	return s
}
