package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mediarelay/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN",
		"COOKIE_BASE64",
		"MEDIARELAY_WEBHOOK_SECRET",
		"MEDIARELAY_TEMP_DIR",
		"MEDIARELAY_MAX_FILE_SIZE_MB",
		"MEDIARELAY_ARTIFACT_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvTokenAndExpandsPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "mediarelay")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.TempDir == "" || !filepath.IsAbs(cfg.Paths.TempDir) {
		t.Fatalf("expected absolute temp dir, got %q", cfg.Paths.TempDir)
	}
	if cfg.History.Path != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Fatalf("expected bot token from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Media.MaxFileSizeMB != 48 {
		t.Fatalf("unexpected max file size: %d", cfg.Media.MaxFileSizeMB)
	}
	if cfg.ArtifactTTL() != 300*time.Second {
		t.Fatalf("unexpected artifact ttl: %s", cfg.ArtifactTTL())
	}
	if got := strings.Join(cfg.Extraction.Backends, ","); got != "ytdlp,gallerydl,page" {
		t.Fatalf("unexpected backends: %q", got)
	}
	if len(cfg.Media.Ladder) != len(config.DefaultLadder()) {
		t.Fatalf("expected default ladder, got %d steps", len(cfg.Media.Ladder))
	}
	if cfg.Delivery.CaptionPolicy != config.CaptionFirst {
		t.Fatalf("unexpected caption policy: %q", cfg.Delivery.CaptionPolicy)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.WorkDir(), cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "mediarelay.toml")

	type step struct {
		CRF          int    `toml:"crf"`
		MaxHeight    int    `toml:"max_height"`
		AudioBitrate string `toml:"audio_bitrate"`
	}
	type payload struct {
		Paths struct {
			TempDir string `toml:"temp_dir"`
		} `toml:"paths"`
		Telegram struct {
			BotToken string `toml:"bot_token"`
			Mode     string `toml:"mode"`
		} `toml:"telegram"`
		Media struct {
			MaxFileSizeMB int    `toml:"max_file_size_mb"`
			Ladder        []step `toml:"ladder"`
		} `toml:"media"`
		Extraction struct {
			Backends []string `toml:"backends"`
		} `toml:"extraction"`
		Delivery struct {
			CaptionPolicy string `toml:"caption_policy"`
		} `toml:"delivery"`
	}
	custom := payload{}
	custom.Paths.TempDir = filepath.Join(tempDir, "work")
	custom.Telegram.BotToken = "file-token"
	custom.Telegram.Mode = "Polling"
	custom.Media.MaxFileSizeMB = 20
	custom.Media.Ladder = []step{{CRF: 30, MaxHeight: 360, AudioBitrate: "64K"}}
	custom.Extraction.Backends = []string{" Page ", "ytdlp", "page"}
	custom.Delivery.CaptionPolicy = "ALL"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Telegram.BotToken != "file-token" {
		t.Fatalf("expected bot token from file, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.Mode != config.ModePolling {
		t.Fatalf("expected polling mode, got %q", cfg.Telegram.Mode)
	}
	if cfg.MaxFileSizeBytes() != 20*1024*1024 {
		t.Fatalf("unexpected ceiling: %d", cfg.MaxFileSizeBytes())
	}
	if len(cfg.Media.Ladder) != 1 || cfg.Media.Ladder[0].CRF != 30 || cfg.Media.Ladder[0].AudioBitrate != "64k" {
		t.Fatalf("expected ladder from file, got %+v", cfg.Media.Ladder)
	}
	if got := strings.Join(cfg.Extraction.Backends, ","); got != "page,ytdlp" {
		t.Fatalf("expected deduplicated backends, got %q", got)
	}
	if cfg.Delivery.CaptionPolicy != config.CaptionAll {
		t.Fatalf("expected caption policy all, got %q", cfg.Delivery.CaptionPolicy)
	}
	if cfg.WorkDir() != filepath.Join(tempDir, "work", "mediarelay") {
		t.Fatalf("unexpected work dir: %q", cfg.WorkDir())
	}
}

func TestEnvOverridesForMediaAndTempDir(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("COOKIE_BASE64", "Y29va2ll")
	t.Setenv("MEDIARELAY_TEMP_DIR", tempDir)
	t.Setenv("MEDIARELAY_MAX_FILE_SIZE_MB", "10")
	t.Setenv("MEDIARELAY_ARTIFACT_TTL_SECONDS", "45")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.TempDir != tempDir {
		t.Fatalf("expected temp dir from env, got %q", cfg.Paths.TempDir)
	}
	if cfg.Media.MaxFileSizeMB != 10 {
		t.Fatalf("expected max size from env, got %d", cfg.Media.MaxFileSizeMB)
	}
	if cfg.ArtifactTTL() != 45*time.Second {
		t.Fatalf("expected ttl from env, got %s", cfg.ArtifactTTL())
	}
	if cfg.Extraction.CookieBase64 != "Y29va2ll" {
		t.Fatalf("expected cookie blob from env, got %q", cfg.Extraction.CookieBase64)
	}
}

func TestLoadRejectsMalformedEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("MEDIARELAY_MAX_FILE_SIZE_MB", "lots")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for malformed MEDIARELAY_MAX_FILE_SIZE_MB")
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	clearEnv(t)
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error without bot token")
	}
	if !strings.Contains(err.Error(), "telegram.bot_token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[[media.ladder]]") {
		t.Fatalf("sample config missing ladder: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if len(cfg.Media.Ladder) != len(config.DefaultLadder()) {
		t.Fatalf("sample ladder has %d steps", len(cfg.Media.Ladder))
	}
	if !strings.Contains(cfg.Paths.StateDir, "mediarelay") {
		t.Fatalf("expected state dir to contain mediarelay, got %q", cfg.Paths.StateDir)
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.BotToken = "tok-XYZ-123"
	cfg.Telegram.WebhookSecret = "hook-XYZ-456"
	cfg.Extraction.CookieBase64 = "cookie-XYZ-789"
	redacted := cfg.Redacted()
	if redacted.Telegram.BotToken != "********" || redacted.Telegram.WebhookSecret != "********" || redacted.Extraction.CookieBase64 != "********" {
		t.Fatalf("expected secrets masked, got %+v / %q", redacted.Telegram, redacted.Extraction.CookieBase64)
	}
	if cfg.Telegram.BotToken != "tok-XYZ-123" {
		t.Fatal("expected original config untouched")
	}
	data, err := redacted.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, value := range []string{"tok-XYZ-123", "hook-XYZ-456", "cookie-XYZ-789"} {
		if strings.Contains(out, value) {
			t.Fatalf("marshalled config leaked %q: %s", value, out)
		}
	}
	if !strings.Contains(out, "bot_token = '********'") {
		t.Fatalf("expected masked bot_token in output: %s", out)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Telegram.BotToken = "token"
		return cfg
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cases := map[string]func(*config.Config){
		"mode":         func(c *config.Config) { c.Telegram.Mode = "carrier-pigeon" },
		"max size":     func(c *config.Config) { c.Media.MaxFileSizeMB = 0 },
		"ttl":          func(c *config.Config) { c.Media.ArtifactTTLSeconds = -1 },
		"photoQuality": func(c *config.Config) { c.Media.PhotoQuality = 40 },
		"ladder crf":   func(c *config.Config) { c.Media.Ladder = []config.LadderStep{{CRF: 60, AudioBitrate: "64k"}} },
		"ladder audio": func(c *config.Config) { c.Media.Ladder = []config.LadderStep{{CRF: 30}} },
		"backend":      func(c *config.Config) { c.Extraction.Backends = []string{"instaloader"} },
		"caption":      func(c *config.Config) { c.Delivery.CaptionPolicy = "none" },
		"rate":         func(c *config.Config) { c.Telegram.SendRatePerSecond = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}
