// Package page fetches media by reading the OpenGraph tags of the public post
// page. It needs no external tools and serves as the last fallback.
package page

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mediarelay/internal/extraction"
	"mediarelay/internal/fileutil"
	"mediarelay/internal/link"
	"mediarelay/internal/logging"
	"mediarelay/internal/media"
	"mediarelay/internal/services"
	"mediarelay/internal/textutil"
)

// Name identifies this backend in logs and history.
const Name = "page"

const maxPageBytes = 5 * 1024 * 1024

// Options configures the backend.
type Options struct {
	UserAgent string
	// MaxDownloadBytes caps the media download; zero means unlimited.
	MaxDownloadBytes int64
	Client           *http.Client
	Logger           *slog.Logger
}

// Backend scrapes og:video / og:image from the post page.
type Backend struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// New constructs the backend.
func New(opts Options) *Backend {
	client := opts.Client
	if client == nil {
		client = NewClient()
	}
	return &Backend{
		client:    client,
		userAgent: strings.TrimSpace(opts.UserAgent),
		maxBytes:  opts.MaxDownloadBytes,
		logger:    logging.NewComponentLogger(opts.Logger, "page"),
	}
}

// NewClient returns an HTTP client with conservative transport defaults.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// Name implements extraction.Backend.
func (b *Backend) Name() string { return Name }

// Preview holds what the page advertises.
type Preview struct {
	MediaURL string
	Kind     media.Kind
	Caption  string
	Username string
}

// Fetch reads the page for l and downloads the advertised media.
func (b *Backend) Fetch(ctx context.Context, l link.Link, target extraction.Target) (media.ExtractionResult, error) {
	doc, err := b.document(ctx, l.URL)
	if err != nil {
		return media.ExtractionResult{}, err
	}
	preview := ParsePreview(doc)
	if preview.MediaURL == "" {
		return media.ExtractionResult{}, nil
	}
	mediaURL, err := resolve(l.URL, preview.MediaURL)
	if err != nil {
		return media.ExtractionResult{}, services.Wrap(services.ErrValidation, Name, "resolve", "invalid media url", err)
	}

	dest, err := b.download(ctx, mediaURL, target, preview.Kind)
	if err != nil {
		return media.ExtractionResult{}, err
	}
	logging.WithContext(ctx, b.logger).Debug("downloaded page media", logging.String("path", dest))

	return media.ExtractionResult{
		Items: []media.Item{{Path: dest, Kind: preview.Kind, Ordinal: 1}},
		Caption: textutil.FormatCaption(textutil.CaptionParts{
			Username: preview.Username,
			Text:     preview.Caption,
		}),
		Backend: Name,
	}, nil
}

// ParsePreview extracts the media URL and caption from OpenGraph meta tags.
// Videos win over images.
func ParsePreview(doc *goquery.Document) Preview {
	meta := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok {
			key, ok = s.Attr("name")
		}
		if !ok {
			return
		}
		key = strings.ToLower(strings.TrimSpace(key))
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		if _, seen := meta[key]; !seen {
			meta[key] = content
		}
	})

	var p Preview
	for _, key := range []string{"og:video:secure_url", "og:video", "og:video:url"} {
		if v := meta[key]; v != "" {
			p.MediaURL, p.Kind = v, media.KindVideo
			break
		}
	}
	if p.MediaURL == "" {
		for _, key := range []string{"og:image:secure_url", "og:image"} {
			if v := meta[key]; v != "" {
				p.MediaURL, p.Kind = v, media.KindPhoto
				break
			}
		}
	}
	p.Caption = meta["og:description"]
	if p.Caption == "" {
		p.Caption = meta["og:title"]
	}
	p.Username = usernameFromMeta(meta)
	return p
}

func usernameFromMeta(meta map[string]string) string {
	if handle := strings.TrimPrefix(meta["twitter:site"], "@"); handle != "" && !strings.EqualFold(handle, "instagram") {
		return handle
	}
	title := meta["og:title"]
	if start := strings.Index(title, "(@"); start >= 0 {
		rest := title[start+2:]
		if end := strings.Index(rest, ")"); end > 0 {
			return rest[:end]
		}
	}
	return ""
}

func (b *Backend) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := b.get(ctx, pageURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, Name, "parse", "parse page html", err)
	}
	return doc, nil
}

func (b *Backend) download(ctx context.Context, mediaURL string, target extraction.Target, kind media.Kind) (string, error) {
	resp, err := b.get(ctx, mediaURL, "*/*")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	dest := filepath.Join(target.Dir, target.Stem+"_01"+extensionFor(mediaURL, resp.Header.Get("Content-Type"), kind))
	file, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, Name, "download", "create media file", err)
	}
	var body io.Reader = resp.Body
	if b.maxBytes > 0 {
		body = io.LimitReader(resp.Body, b.maxBytes+1)
	}
	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && b.maxBytes > 0 && written > b.maxBytes {
		copyErr = services.Wrap(services.ErrValidation, Name, "download", fmt.Sprintf("media exceeds %d bytes", b.maxBytes), nil)
	}
	if copyErr != nil {
		_ = fileutil.RemoveIfExists(dest)
		return "", services.Wrap(services.ErrTransient, Name, "download", "write media file", copyErr)
	}
	return dest, nil
}

func (b *Backend) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, Name, "request", "build request", err)
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, Name, "request", "request cancelled", err)
		}
		return nil, services.Wrap(services.ErrTransient, Name, "request", "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, Name, "request", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return resp, nil
}

func resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	resolved := baseURL.ResolveReference(refURL)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", resolved.Scheme)
	}
	return resolved.String(), nil
}

func extensionFor(mediaURL, contentType string, kind media.Kind) string {
	if parsed, err := url.Parse(mediaURL); err == nil {
		ext := strings.ToLower(path.Ext(parsed.Path))
		if k, ok := media.KindFromPath("x" + ext); ok && k == kind {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "video/mp4":
			return ".mp4"
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		}
	}
	if kind == media.KindVideo {
		return ".mp4"
	}
	return ".jpg"
}
