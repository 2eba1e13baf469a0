// Package textutil provides caption shaping and filename sanitization.
//
// Captions arrive from extraction backends in assorted shapes. FormatCaption
// assembles the author handle, body text, and music attribution into one
// string; CleanCaption trims it to a short, hashtag-free summary that fits a
// chat caption. SanitizeToken turns content identifiers into safe file stems.
package textutil
