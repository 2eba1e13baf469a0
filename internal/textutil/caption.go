package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	bodyLimit       = 400
	maxCaptionLines = 3
	minLineLength   = 4
	ellipsis        = "..."
)

// CaptionParts holds the metadata a backend recovered for a post.
type CaptionParts struct {
	Username string
	Text     string
	Track    string
	Artist   string
}

// FormatCaption joins the author handle, the body text (capped at 400 runes),
// and a music line into a newline separated caption.
func FormatCaption(parts CaptionParts) string {
	lines := make([]string, 0, 3)
	if user := strings.TrimSpace(strings.ReplaceAll(parts.Username, "@", "")); user != "" {
		lines = append(lines, "@"+user)
	}
	if text := strings.TrimSpace(norm.NFC.String(parts.Text)); text != "" {
		lines = append(lines, truncateRunes(text, bodyLimit))
	}
	if music := MusicLine(parts.Track, parts.Artist); music != "" {
		lines = append(lines, music)
	}
	return strings.Join(lines, "\n")
}

// MusicLine renders "🎵 track - artist", dropping whichever half is unknown.
func MusicLine(track, artist string) string {
	track = strings.TrimSpace(track)
	artist = strings.TrimSpace(artist)
	switch {
	case track != "" && artist != "":
		return "🎵 " + track + " - " + artist
	case track != "":
		return "🎵 " + track
	case artist != "":
		return "🎵 " + artist
	default:
		return ""
	}
}

// CleanCaption keeps the first three meaningful lines of a caption. Blank
// lines, hashtag lines, and lines of three characters or fewer are dropped.
// The result is capped at maxLength runes plus an ellipsis; maxLength <= 0
// disables the cap. An empty string means nothing worth showing remains.
func CleanCaption(caption string, maxLength int) string {
	caption = strings.TrimSpace(norm.NFC.String(caption))
	if caption == "" {
		return ""
	}
	kept := make([]string, 0, maxCaptionLines)
	for _, line := range strings.Split(caption, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || utf8.RuneCountInString(line) < minLineLength {
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxCaptionLines {
			break
		}
	}
	result := strings.Join(kept, "\n")
	if maxLength > 0 {
		result = truncateRunes(result, maxLength)
	}
	return result
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit]) + ellipsis
}
