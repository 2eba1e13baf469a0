// Package ffmpeg wraps the ffmpeg invocations the relay needs: size-reducing
// video and photo re-encodes and MP3 audio extraction.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mediarelay/internal/toolexec"
)

// VideoOptions selects one H.264 re-encode. MaxHeight of zero keeps the
// source height; the width follows the aspect ratio.
type VideoOptions struct {
	CRF          int
	MaxHeight    int
	AudioBitrate string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs ffmpeg.
type Client struct {
	binary string
	exec   toolexec.Executor
}

// New constructs a client for binary, defaulting to "ffmpeg".
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	c := &Client{binary: binary, exec: toolexec.Command{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the configured executable.
func (c *Client) Binary() string {
	return c.binary
}

// CompressVideo re-encodes input into an MP4 at output.
func (c *Client) CompressVideo(ctx context.Context, input, output string, opts VideoOptions) error {
	if err := checkPaths(input, output); err != nil {
		return err
	}
	_, err := c.exec.Run(ctx, c.binary, VideoArgs(input, output, opts))
	return err
}

// CompressPhoto re-encodes input as a JPEG at the given qscale (2 best, 31 smallest).
func (c *Client) CompressPhoto(ctx context.Context, input, output string, quality int) error {
	if err := checkPaths(input, output); err != nil {
		return err
	}
	_, err := c.exec.Run(ctx, c.binary, PhotoArgs(input, output, quality))
	return err
}

// ExtractAudio writes the audio track of input as a VBR MP3 at output.
func (c *Client) ExtractAudio(ctx context.Context, input, output string) error {
	if err := checkPaths(input, output); err != nil {
		return err
	}
	_, err := c.exec.Run(ctx, c.binary, AudioArgs(input, output))
	return err
}

// VideoArgs builds the argument list for CompressVideo.
func VideoArgs(input, output string, opts VideoOptions) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", strconv.Itoa(opts.CRF),
	}
	if opts.MaxHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:'min(ih,%d)'", opts.MaxHeight))
	}
	bitrate := strings.TrimSpace(opts.AudioBitrate)
	if bitrate == "" {
		bitrate = "128k"
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", bitrate,
		"-movflags", "+faststart",
		output,
	)
	return args
}

// PhotoArgs builds the argument list for CompressPhoto.
func PhotoArgs(input, output string, quality int) []string {
	if quality < 2 {
		quality = 2
	}
	if quality > 31 {
		quality = 31
	}
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-frames:v", "1",
		"-q:v", strconv.Itoa(quality),
		output,
	}
}

// AudioArgs builds the argument list for ExtractAudio.
func AudioArgs(input, output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		output,
	}
}

func checkPaths(input, output string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("ffmpeg: input path required")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("ffmpeg: output path required")
	}
	if input == output {
		return errors.New("ffmpeg: output must differ from input")
	}
	return nil
}
