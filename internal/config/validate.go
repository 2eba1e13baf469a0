package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("telegram.bot_token is required. Set TELEGRAM_BOT_TOKEN env var or edit %s (create with 'mediarelay config init')", defaultPath)
	}
	switch c.Telegram.Mode {
	case ModeWebhook, ModePolling:
	default:
		return fmt.Errorf("telegram.mode must be %q or %q, got %q", ModeWebhook, ModePolling, c.Telegram.Mode)
	}
	if c.Telegram.SendRatePerSecond < 0 {
		return errors.New("telegram.send_rate_per_second must be zero (unlimited) or positive")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.MaxFileSizeMB <= 0 {
		return errors.New("media.max_file_size_mb must be positive")
	}
	if c.Media.ArtifactTTLSeconds <= 0 {
		return errors.New("media.artifact_ttl_seconds must be positive")
	}
	if c.Media.PhotoQuality < 2 || c.Media.PhotoQuality > 31 {
		return errors.New("media.photo_quality must be between 2 and 31")
	}
	for i, step := range c.Media.Ladder {
		if step.CRF < 0 || step.CRF > 51 {
			return fmt.Errorf("media.ladder[%d].crf must be between 0 and 51", i)
		}
		if step.MaxHeight < 0 {
			return fmt.Errorf("media.ladder[%d].max_height must not be negative", i)
		}
		if step.AudioBitrate == "" {
			return fmt.Errorf("media.ladder[%d].audio_bitrate must be set", i)
		}
	}
	return nil
}

func (c *Config) validateExtraction() error {
	for _, name := range c.Extraction.Backends {
		switch name {
		case BackendYtdlp, BackendGalleryDL, BackendPage:
		default:
			return fmt.Errorf("extraction.backends: unknown backend %q (valid: %s)", name, strings.Join([]string{BackendYtdlp, BackendGalleryDL, BackendPage}, ", "))
		}
	}
	return nil
}

func (c *Config) validateDelivery() error {
	switch c.Delivery.CaptionPolicy {
	case CaptionFirst, CaptionAll:
	default:
		return fmt.Errorf("delivery.caption_policy must be %q or %q, got %q", CaptionFirst, CaptionAll, c.Delivery.CaptionPolicy)
	}
	return nil
}
