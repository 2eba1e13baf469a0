// Package link recognizes shareable content links and extracts their content
// identifier. Parsing is pure string work and never touches the network.
package link

import (
	"errors"
	"net/url"
	"strings"
)

// ErrLinkNotRecognized reports text that does not contain a supported link.
var ErrLinkNotRecognized = errors.New("link not recognized")

// Shape identifies the kind of post a link points at.
type Shape string

const (
	ShapePost Shape = "post"
	ShapeReel Shape = "reel"
	ShapeTV   Shape = "tv"
)

// Link is a validated content reference.
type Link struct {
	// Raw is the text as received, trimmed.
	Raw string
	// URL is the canonical https form used by backends.
	URL string
	// ContentID is the path segment following the content-type marker.
	ContentID string
	Shape     Shape
}

var hosts = map[string]struct{}{
	"instagram.com": {},
	"instagr.am":    {},
}

var markers = map[string]Shape{
	"p":     ShapePost,
	"reel":  ShapeReel,
	"reels": ShapeReel,
	"tv":    ShapeTV,
}

// Parse returns the first supported link found in text.
func Parse(text string) (Link, bool) {
	for _, field := range strings.Fields(text) {
		if l, ok := parseCandidate(field); ok {
			l.Raw = strings.TrimSpace(text)
			return l, true
		}
	}
	return Link{}, false
}

// Classify is Parse with an error return for callers that propagate failures.
func Classify(text string) (Link, error) {
	l, ok := Parse(text)
	if !ok {
		return Link{}, ErrLinkNotRecognized
	}
	return l, nil
}

// IsSupported reports whether text contains a supported link.
func IsSupported(text string) bool {
	_, ok := Parse(text)
	return ok
}

func parseCandidate(candidate string) (Link, bool) {
	candidate = strings.Trim(candidate, "<>()[]\"'")
	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return Link{}, false
	}
	if !knownHost(u.Hostname()) {
		return Link{}, false
	}

	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	for i, segment := range segments {
		shape, ok := markers[strings.ToLower(segment)]
		if !ok || i+1 >= len(segments) {
			continue
		}
		id := segments[i+1]
		if id == "" {
			continue
		}
		return Link{
			URL:       canonicalURL(shape, segment, id),
			ContentID: id,
			Shape:     shape,
		}, true
	}
	return Link{}, false
}

func knownHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, prefix := range []string{"www.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}
	_, ok := hosts[host]
	return ok
}

func canonicalURL(shape Shape, marker, id string) string {
	segment := strings.ToLower(marker)
	if shape == ShapeReel {
		segment = "reel"
	}
	return "https://www.instagram.com/" + segment + "/" + id + "/"
}
