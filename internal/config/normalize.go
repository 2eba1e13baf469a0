package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTelegram()
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeDelivery()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MEDIARELAY_TEMP_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.TempDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	var err error
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.WebhookSecret = strings.TrimSpace(c.Telegram.WebhookSecret)
	if c.Telegram.WebhookSecret == "" {
		if value, ok := os.LookupEnv("MEDIARELAY_WEBHOOK_SECRET"); ok {
			c.Telegram.WebhookSecret = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBaseURL), "/")
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = defaultTelegramAPIBaseURL
	}
	c.Telegram.Mode = strings.ToLower(strings.TrimSpace(c.Telegram.Mode))
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = defaultTelegramMode
	}
	c.Telegram.WebhookBind = strings.TrimSpace(c.Telegram.WebhookBind)
	if c.Telegram.WebhookBind == "" {
		c.Telegram.WebhookBind = defaultWebhookBind
	}
	c.Telegram.WebhookPath = strings.TrimSpace(c.Telegram.WebhookPath)
	if c.Telegram.WebhookPath == "" {
		c.Telegram.WebhookPath = defaultWebhookPath
	}
	if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
		c.Telegram.WebhookPath = "/" + c.Telegram.WebhookPath
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultRequestTimeout
	}
	if c.Telegram.UploadTimeout <= 0 {
		c.Telegram.UploadTimeout = defaultUploadTimeout
	}
	if c.Telegram.SendBurst <= 0 {
		c.Telegram.SendBurst = defaultSendBurst
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
}

func (c *Config) normalizeMedia() error {
	if value, ok := os.LookupEnv("MEDIARELAY_MAX_FILE_SIZE_MB"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MEDIARELAY_MAX_FILE_SIZE_MB: %w", err)
		}
		c.Media.MaxFileSizeMB = parsed
	}
	if value, ok := os.LookupEnv("MEDIARELAY_ARTIFACT_TTL_SECONDS"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MEDIARELAY_ARTIFACT_TTL_SECONDS: %w", err)
		}
		c.Media.ArtifactTTLSeconds = parsed
	}
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Media.CompressionTimeout <= 0 {
		c.Media.CompressionTimeout = defaultCompressionTimeout
	}
	if c.Media.AudioTimeout <= 0 {
		c.Media.AudioTimeout = defaultAudioTimeout
	}
	if c.Media.PhotoQuality == 0 {
		c.Media.PhotoQuality = defaultPhotoQuality
	}
	if len(c.Media.Ladder) == 0 {
		c.Media.Ladder = DefaultLadder()
	}
	for i := range c.Media.Ladder {
		c.Media.Ladder[i].AudioBitrate = strings.ToLower(strings.TrimSpace(c.Media.Ladder[i].AudioBitrate))
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.CookieBase64 = strings.TrimSpace(c.Extraction.CookieBase64)
	if c.Extraction.CookieBase64 == "" {
		if value, ok := os.LookupEnv("COOKIE_BASE64"); ok {
			c.Extraction.CookieBase64 = strings.TrimSpace(value)
		}
	}
	if len(c.Extraction.Backends) == 0 {
		c.Extraction.Backends = DefaultBackends()
	}
	backends := make([]string, 0, len(c.Extraction.Backends))
	seen := make(map[string]struct{}, len(c.Extraction.Backends))
	for _, name := range c.Extraction.Backends {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		backends = append(backends, normalized)
	}
	c.Extraction.Backends = backends
	c.Extraction.YtdlpBinary = strings.TrimSpace(c.Extraction.YtdlpBinary)
	if c.Extraction.YtdlpBinary == "" {
		c.Extraction.YtdlpBinary = defaultYtdlpBinary
	}
	c.Extraction.GalleryDLBinary = strings.TrimSpace(c.Extraction.GalleryDLBinary)
	if c.Extraction.GalleryDLBinary == "" {
		c.Extraction.GalleryDLBinary = defaultGalleryDLBinary
	}
	if c.Extraction.AttemptTimeout <= 0 {
		c.Extraction.AttemptTimeout = defaultAttemptTimeout
	}
	c.Extraction.UserAgent = strings.TrimSpace(c.Extraction.UserAgent)
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = defaultUserAgent
	}
	if c.Extraction.MaxDownloadMB <= 0 {
		c.Extraction.MaxDownloadMB = defaultMaxDownloadMB
	}
}

func (c *Config) normalizeDelivery() {
	c.Delivery.CaptionPolicy = strings.ToLower(strings.TrimSpace(c.Delivery.CaptionPolicy))
	if c.Delivery.CaptionPolicy == "" {
		c.Delivery.CaptionPolicy = defaultCaptionPolicy
	}
	if c.Delivery.CaptionMaxLength <= 0 {
		c.Delivery.CaptionMaxLength = defaultCaptionMaxLength
	}
	if c.Delivery.ProcessingWarningSeconds < 0 {
		c.Delivery.ProcessingWarningSeconds = 0
	}
	c.Delivery.AudioTitle = strings.TrimSpace(c.Delivery.AudioTitle)
	if c.Delivery.AudioTitle == "" {
		c.Delivery.AudioTitle = defaultAudioTitle
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
