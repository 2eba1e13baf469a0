// Package media defines the items that flow from extraction backends through
// the optimizer to delivery.
package media

import (
	"path/filepath"
	"strings"
)

// Kind distinguishes photos from videos.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

var extensionKinds = map[string]Kind{
	".mp4":  KindVideo,
	".mov":  KindVideo,
	".webm": KindVideo,
	".m4v":  KindVideo,
	".mkv":  KindVideo,
	".jpg":  KindPhoto,
	".jpeg": KindPhoto,
	".png":  KindPhoto,
	".webp": KindPhoto,
	".heic": KindPhoto,
}

// KindFromPath classifies a file by extension. ok is false for unknown types.
func KindFromPath(path string) (Kind, bool) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// Item is one downloaded media file.
type Item struct {
	Path    string
	Kind    Kind
	Ordinal int
}

// ExtractionResult is what a backend produced for one link. Treat it as
// read-only once returned.
type ExtractionResult struct {
	Items        []Item
	Caption      string
	Track        string
	Artist       string
	IsCollection bool
	Backend      string
}

// Empty reports whether the result carries no items.
func (r ExtractionResult) Empty() bool {
	return len(r.Items) == 0
}

// Paths lists the item file paths in order.
func (r ExtractionResult) Paths() []string {
	paths := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		paths = append(paths, item.Path)
	}
	return paths
}

// ItemsFromPaths classifies paths into items, numbering them from 1 and
// skipping files of unknown type.
func ItemsFromPaths(paths []string) []Item {
	items := make([]Item, 0, len(paths))
	for _, path := range paths {
		kind, ok := KindFromPath(path)
		if !ok {
			continue
		}
		items = append(items, Item{Path: path, Kind: kind, Ordinal: len(items) + 1})
	}
	return items
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Sibling returns a path next to path named <stem><suffix>.
func Sibling(path, suffix string) string {
	return filepath.Join(filepath.Dir(path), Stem(path)+suffix)
}
