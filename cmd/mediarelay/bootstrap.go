package main

import (
	"fmt"
	"log/slog"
	"strings"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/config"
	"mediarelay/internal/daemon"
	"mediarelay/internal/deps"
	"mediarelay/internal/extraction"
	"mediarelay/internal/extraction/gallerydl"
	"mediarelay/internal/extraction/page"
	"mediarelay/internal/extraction/ytdlp"
	"mediarelay/internal/history"
	"mediarelay/internal/logging"
	"mediarelay/internal/media/ffmpeg"
	"mediarelay/internal/media/ffprobe"
	"mediarelay/internal/optimize"
	"mediarelay/internal/relay"
	"mediarelay/internal/telegram"
)

// runtime holds the assembled process graph.
type runtime struct {
	client  *telegram.Client
	history *history.Store
	cache   *artifacts.Cache
	service *relay.Service
	daemon  *daemon.Daemon
}

func (r *runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.history.Close()
}

// buildBackends instantiates the configured backends in priority order.
func buildBackends(cfg *config.Config, logger *slog.Logger) []extraction.Backend {
	backends := make([]extraction.Backend, 0, len(cfg.Extraction.Backends))
	for _, name := range cfg.Extraction.Backends {
		switch name {
		case config.BackendYtdlp:
			backends = append(backends, ytdlp.New(ytdlp.Options{
				Binary:        cfg.Extraction.YtdlpBinary,
				CookieBase64:  cfg.Extraction.CookieBase64,
				CredentialDir: cfg.WorkDir(),
				Logger:        logger,
			}))
		case config.BackendGalleryDL:
			backends = append(backends, gallerydl.New(gallerydl.Options{
				Binary:        cfg.Extraction.GalleryDLBinary,
				CookieBase64:  cfg.Extraction.CookieBase64,
				CredentialDir: cfg.WorkDir(),
				Logger:        logger,
			}))
		case config.BackendPage:
			backends = append(backends, page.New(page.Options{
				UserAgent:        cfg.Extraction.UserAgent,
				MaxDownloadBytes: cfg.MaxDownloadBytes(),
				Logger:           logger,
			}))
		}
	}
	return backends
}

// ladderSteps converts configured presets into optimizer steps.
func ladderSteps(cfg *config.Config) []optimize.Step {
	ladder := cfg.CompressionLadder()
	steps := make([]optimize.Step, 0, len(ladder))
	for _, step := range ladder {
		steps = append(steps, optimize.Step{
			CRF:          step.CRF,
			MaxHeight:    step.MaxHeight,
			AudioBitrate: step.AudioBitrate,
		})
	}
	return steps
}

// ffprobeAvailable reports whether the optional probe binary resolved.
func ffprobeAvailable(statuses []deps.Status, binary string) bool {
	binary = strings.TrimSpace(binary)
	for _, status := range statuses {
		if status.Command == binary {
			return status.Available
		}
	}
	return false
}

func buildRuntime(cfg *config.Config, logger *slog.Logger, statuses []deps.Status) (*runtime, error) {
	client, err := telegram.NewClient(telegram.Options{
		Token:          cfg.Telegram.BotToken,
		BaseURL:        cfg.Telegram.APIBaseURL,
		RequestTimeout: config.Seconds(cfg.Telegram.RequestTimeout),
		UploadTimeout:  config.Seconds(cfg.Telegram.UploadTimeout),
		RatePerSecond:  cfg.Telegram.SendRatePerSecond,
		Burst:          cfg.Telegram.SendBurst,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}
	rt := &runtime{client: client, history: store}

	transcoder := ffmpeg.New(cfg.Media.FFmpegBinary)
	optimizer := optimize.New(transcoder, optimize.Options{
		Limit:          cfg.MaxFileSizeBytes(),
		Ladder:         ladderSteps(cfg),
		PhotoQuality:   cfg.Media.PhotoQuality,
		AttemptTimeout: config.Seconds(cfg.Media.CompressionTimeout),
		Logger:         logger,
	})
	coordinator := extraction.NewCoordinator(buildBackends(cfg, logger), extraction.Options{
		AttemptTimeout: config.Seconds(cfg.Extraction.AttemptTimeout),
		Logger:         logger,
	})

	rt.cache = artifacts.NewCache(cfg.ArtifactTTL(), artifacts.WithLogger(logger))
	relayDeps := relay.Deps{
		Gateway:   client,
		Extractor: coordinator,
		Optimizer: optimizer,
		Audio:     transcoder,
		Cache:     rt.cache,
		Guard:     artifacts.NewGuard(),
		History:   store,
	}
	if ffprobeAvailable(statuses, cfg.Media.FFprobeBinary) {
		relayDeps.Prober = ffprobe.New(cfg.Media.FFprobeBinary)
	} else {
		logging.WarnWithContext(logger, "ffprobe unavailable", "ffprobe_unavailable",
			logging.String(logging.FieldErrorHint, "install ffprobe to check videos for audio before extraction"),
			logging.String(logging.FieldImpact, "audio extraction runs without an upfront stream check"),
		)
	}

	rt.service, err = relay.New(relayDeps, relay.Options{
		WorkDir:           cfg.WorkDir(),
		ArtifactTTL:       cfg.ArtifactTTL(),
		CaptionPolicy:     cfg.Delivery.CaptionPolicy,
		CaptionMaxLength:  cfg.Delivery.CaptionMaxLength,
		ProcessingWarning: cfg.ProcessingWarningAfter(),
		AudioTitle:        cfg.Delivery.AudioTitle,
		AudioTimeout:      config.Seconds(cfg.Media.AudioTimeout),
		Logger:            logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("relay service: %w", err)
	}

	rt.daemon, err = daemon.New(cfg, logger, daemon.Deps{
		Cache:   rt.cache,
		Handler: rt.service,
		Source:  client,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return rt, nil
}
