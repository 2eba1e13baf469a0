package config

const (
	defaultConfigPath               = "~/.config/mediarelay/config.toml"
	defaultStateDir                 = "~/.local/share/mediarelay"
	defaultLogDir                   = "~/.local/share/mediarelay/logs"
	defaultHistoryFileName          = "history.db"
	defaultTelegramAPIBaseURL       = "https://api.telegram.org"
	defaultTelegramMode             = "webhook"
	defaultWebhookBind              = "0.0.0.0:8080"
	defaultWebhookPath              = "/webhook"
	defaultRequestTimeout           = 30
	defaultUploadTimeout            = 300
	defaultSendRatePerSecond        = 20
	defaultSendBurst                = 5
	defaultPollTimeout              = 30
	defaultMaxFileSizeMB            = 48
	defaultArtifactTTLSeconds       = 300
	defaultFFmpegBinary             = "ffmpeg"
	defaultFFprobeBinary            = "ffprobe"
	defaultCompressionTimeout       = 180
	defaultAudioTimeout             = 120
	defaultPhotoQuality             = 8
	defaultYtdlpBinary              = "yt-dlp"
	defaultGalleryDLBinary          = "gallery-dl"
	defaultAttemptTimeout           = 180
	defaultUserAgent                = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxDownloadMB            = 200
	defaultCaptionPolicy            = "first"
	defaultCaptionMaxLength         = 1000
	defaultProcessingWarningSeconds = 60
	defaultAudioTitle               = "Instagram Audio"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Backend names accepted in extraction.backends.
const (
	BackendYtdlp     = "ytdlp"
	BackendGalleryDL = "gallerydl"
	BackendPage      = "page"
)

// Caption policies accepted in delivery.caption_policy.
const (
	CaptionFirst = "first"
	CaptionAll   = "all"
)

// Receiver modes accepted in telegram.mode.
const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

// DefaultLadder returns the compression presets, gentlest first.
func DefaultLadder() []LadderStep {
	return []LadderStep{
		{CRF: 28, MaxHeight: 0, AudioBitrate: "128k"},
		{CRF: 32, MaxHeight: 720, AudioBitrate: "96k"},
		{CRF: 36, MaxHeight: 540, AudioBitrate: "96k"},
		{CRF: 40, MaxHeight: 480, AudioBitrate: "64k"},
	}
}

// DefaultBackends returns the extraction backend order used when none is configured.
func DefaultBackends() []string {
	return []string{BackendYtdlp, BackendGalleryDL, BackendPage}
}

// Default returns a Config populated with repository defaults. The ladder and
// backend lists stay empty until normalization so TOML arrays replace them.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Telegram: Telegram{
			APIBaseURL:        defaultTelegramAPIBaseURL,
			Mode:              defaultTelegramMode,
			WebhookBind:       defaultWebhookBind,
			WebhookPath:       defaultWebhookPath,
			RequestTimeout:    defaultRequestTimeout,
			UploadTimeout:     defaultUploadTimeout,
			SendRatePerSecond: defaultSendRatePerSecond,
			SendBurst:         defaultSendBurst,
			PollTimeout:       defaultPollTimeout,
		},
		Media: Media{
			MaxFileSizeMB:      defaultMaxFileSizeMB,
			ArtifactTTLSeconds: defaultArtifactTTLSeconds,
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			CompressionTimeout: defaultCompressionTimeout,
			AudioTimeout:       defaultAudioTimeout,
			PhotoQuality:       defaultPhotoQuality,
		},
		Extraction: Extraction{
			YtdlpBinary:     defaultYtdlpBinary,
			GalleryDLBinary: defaultGalleryDLBinary,
			AttemptTimeout:  defaultAttemptTimeout,
			UserAgent:       defaultUserAgent,
			MaxDownloadMB:   defaultMaxDownloadMB,
		},
		Delivery: Delivery{
			CaptionPolicy:            defaultCaptionPolicy,
			CaptionMaxLength:         defaultCaptionMaxLength,
			ProcessingWarningSeconds: defaultProcessingWarningSeconds,
			AudioTitle:               defaultAudioTitle,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
