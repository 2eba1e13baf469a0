package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir  string `toml:"temp_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Telegram contains configuration for the Bot API transport.
type Telegram struct {
	BotToken          string  `toml:"bot_token"`
	APIBaseURL        string  `toml:"api_base_url"`
	Mode              string  `toml:"mode"`
	WebhookBind       string  `toml:"webhook_bind"`
	WebhookPath       string  `toml:"webhook_path"`
	WebhookSecret     string  `toml:"webhook_secret"`
	RequestTimeout    int     `toml:"request_timeout"`
	UploadTimeout     int     `toml:"upload_timeout"`
	SendRatePerSecond float64 `toml:"send_rate_per_second"`
	SendBurst         int     `toml:"send_burst"`
	PollTimeout       int     `toml:"poll_timeout"`
}

// LadderStep is one compression preset. MaxHeight of zero keeps the source height.
type LadderStep struct {
	CRF          int    `toml:"crf"`
	MaxHeight    int    `toml:"max_height"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Media contains configuration for size normalization and the artifact cache.
type Media struct {
	MaxFileSizeMB      int          `toml:"max_file_size_mb"`
	ArtifactTTLSeconds int          `toml:"artifact_ttl_seconds"`
	FFmpegBinary       string       `toml:"ffmpeg_binary"`
	FFprobeBinary      string       `toml:"ffprobe_binary"`
	CompressionTimeout int          `toml:"compression_timeout"`
	AudioTimeout       int          `toml:"audio_timeout"`
	PhotoQuality       int          `toml:"photo_quality"`
	Ladder             []LadderStep `toml:"ladder"`
}

// Extraction contains configuration for the ordered fetch backends.
type Extraction struct {
	Backends        []string `toml:"backends"`
	CookieBase64    string   `toml:"cookie_base64"`
	YtdlpBinary     string   `toml:"ytdlp_binary"`
	GalleryDLBinary string   `toml:"gallerydl_binary"`
	AttemptTimeout  int      `toml:"attempt_timeout"`
	UserAgent       string   `toml:"user_agent"`
	MaxDownloadMB   int      `toml:"max_download_mb"`
}

// Delivery contains configuration for how results are presented to requesters.
type Delivery struct {
	CaptionPolicy            string `toml:"caption_policy"`
	CaptionMaxLength         int    `toml:"caption_max_length"`
	ProcessingWarningSeconds int    `toml:"processing_warning_seconds"`
	AudioTitle               string `toml:"audio_title"`
}

// History contains configuration for the run journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediarelay.
//
// Configuration sections by subsystem:
//   - Paths: workspace, state, and log directories
//   - Telegram: bot token, webhook/polling receiver, send pacing
//   - Media: size ceiling, artifact TTL, ffmpeg tooling, compression ladder
//   - Extraction: backend order, cookie blob, downloader binaries
//   - Delivery: caption policy and requester notices
//   - History: SQLite run journal
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Telegram   Telegram   `toml:"telegram"`
	Media      Media      `toml:"media"`
	Extraction Extraction `toml:"extraction"`
	Delivery   Delivery   `toml:"delivery"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediarelay.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.WorkDir(), c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// WorkDir returns the directory that holds downloads, artifacts, and credential files.
func (c *Config) WorkDir() string {
	return filepath.Join(c.Paths.TempDir, "mediarelay")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mediarelay.lock")
}

// MaxFileSizeBytes returns the delivery size ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Media.MaxFileSizeMB) * 1024 * 1024
}

// MaxDownloadBytes returns the per-file cap applied to direct HTTP downloads.
func (c *Config) MaxDownloadBytes() int64 {
	return int64(c.Extraction.MaxDownloadMB) * 1024 * 1024
}

// ArtifactTTL returns how long a delivered video stays available for follow-up actions.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.Media.ArtifactTTLSeconds) * time.Second
}

// ProcessingWarningAfter returns the delay before the requester is told a run is slow.
// Zero disables the notice.
func (c *Config) ProcessingWarningAfter() time.Duration {
	return time.Duration(c.Delivery.ProcessingWarningSeconds) * time.Second
}

// Seconds converts an integer seconds field to a duration.
func Seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy with secrets masked, suitable for display.
func (c Config) Redacted() Config {
	out := c
	out.Telegram.BotToken = mask(c.Telegram.BotToken)
	out.Telegram.WebhookSecret = mask(c.Telegram.WebhookSecret)
	out.Extraction.CookieBase64 = mask(c.Extraction.CookieBase64)
	out.Media.Ladder = append([]LadderStep(nil), c.Media.Ladder...)
	out.Extraction.Backends = append([]string(nil), c.Extraction.Backends...)
	return out
}

// Marshal renders the config as TOML.
func (c Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func mask(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "********"
}

// CompressionLadder returns the configured compression presets, or the
// repository defaults when none are set.
func (c *Config) CompressionLadder() []LadderStep {
	if len(c.Media.Ladder) == 0 {
		return DefaultLadder()
	}
	return append([]LadderStep(nil), c.Media.Ladder...)
}
