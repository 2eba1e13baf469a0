// Package extraction fetches the media behind a link by trying an ordered
// list of backends until one produces files.
//
// Each backend runs once per request under its own timeout. Failures and
// panics are absorbed and logged so the next backend gets a turn; whatever a
// failed attempt left on disk is removed first. Subpackages hold the concrete
// backends: ytdlp and gallerydl drive command-line downloaders, page scrapes
// OpenGraph tags from the public post page.
package extraction
