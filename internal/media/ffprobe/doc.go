// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Prober: runs ffprobe through an injectable executor
//   - Result: parsed ffprobe output containing streams and format metadata
//
// The relay uses HasAudio to decide whether a delivered video can yield an
// audio track before spending an ffmpeg run on it.
package ffprobe
