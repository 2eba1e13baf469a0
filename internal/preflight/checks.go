package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sys/unix"

	"mediarelay/internal/config"
	"mediarelay/internal/deps"
	"mediarelay/internal/fileutil"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least min bytes available.
func CheckFreeSpace(name, path string, min uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%.0f MB free", fileutil.MegaBytes(int64(free)))
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %.0f MB)", detail, fileutil.MegaBytes(int64(min)))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckWritableFile verifies that path can be created or appended to.
func CheckWritableFile(name, path string) Result {
	dir := filepath.Dir(path)
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
	}
	if _, err := os.Stat(path); err == nil {
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// BotIdentity resolves the bot account behind the configured token.
type BotIdentity interface {
	Username(ctx context.Context) (string, error)
}

// CheckTelegram verifies the bot token with a single identity lookup.
func CheckTelegram(ctx context.Context, bot BotIdentity) Result {
	const name = "Telegram"
	if bot == nil {
		return Result{Name: name, Detail: "client not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	username, err := bot.Username(checkCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "identity check timed out (API unreachable)"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "authenticated as @" + username}
}

// CheckSystemDeps evaluates the binaries the configured pipeline will run.
// Backend tools are required only when their backend is enabled.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	backends := cfg.Extraction.Backends
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "Required for compression and audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Media.FFprobeBinary,
			Description: "Checks videos for an audio stream before extraction",
			Optional:    true,
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.Extraction.YtdlpBinary,
			Description: "Primary extraction backend",
			Optional:    !slices.Contains(backends, config.BackendYtdlp),
		},
		{
			Name:        "gallery-dl",
			Command:     cfg.Extraction.GalleryDLBinary,
			Description: "Carousel and photo extraction backend",
			Optional:    !slices.Contains(backends, config.BackendGalleryDL),
		},
	}
	return deps.CheckBinaries(requirements)
}
