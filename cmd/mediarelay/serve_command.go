package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mediarelay/internal/config"
	"mediarelay/internal/deps"
	"mediarelay/internal/logging"
	"mediarelay/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var webhookURL string
	var skipTelegramCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, serveOptions{
				webhookURL:        strings.TrimSpace(webhookURL),
				skipTelegramCheck: skipTelegramCheck,
			})
		},
	}
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Public base URL to register with setWebhook (webhook mode)")
	cmd.Flags().BoolVar(&skipTelegramCheck, "skip-telegram-check", false, "Skip the getMe token check at startup")
	return cmd
}

type serveOptions struct {
	webhookURL        string
	skipTelegramCheck bool
}

func runServe(cmdCtx context.Context, ctx *commandContext, opts serveOptions) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Telegram.BotToken) == "" {
		return errors.New("telegram.bot_token is not set; edit the config file or run `mediarelay config init`")
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg)); len(failed) > 0 {
		for _, result := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
		return fmt.Errorf("preflight failed: %s", failed[0].Name)
	}
	statuses := preflight.CheckSystemDeps(cfg)
	if missing := deps.Missing(statuses); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, status := range missing {
			names = append(names, status.Name)
		}
		return fmt.Errorf("required tools missing: %s", strings.Join(names, ", "))
	}

	rt, err := buildRuntime(cfg, logger, statuses)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close history", logging.Error(err))
		}
	}()

	if !opts.skipTelegramCheck {
		result := preflight.CheckTelegram(signalCtx, rt.client)
		if !result.Passed {
			return fmt.Errorf("telegram check failed: %s", result.Detail)
		}
		logger.Info("telegram token verified", logging.String("detail", result.Detail))
	}

	if err := configureReceiver(signalCtx, cfg, rt, opts.webhookURL); err != nil {
		return err
	}

	if err := rt.daemon.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	logger.Info("mediarelay serving",
		logging.String("mode", cfg.Telegram.Mode),
		logging.String("backends", strings.Join(cfg.Extraction.Backends, ",")),
	)

	<-signalCtx.Done()
	logger.Info("mediarelay shutting down")
	rt.daemon.Stop()
	return nil
}

// configureReceiver makes the Bot API route updates to the configured
// receiver. getUpdates refuses to run while a webhook is registered.
func configureReceiver(ctx context.Context, cfg *config.Config, rt *runtime, webhookURL string) error {
	switch cfg.Telegram.Mode {
	case config.ModePolling:
		if err := rt.client.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
	default:
		if webhookURL == "" {
			return nil
		}
		target := strings.TrimRight(webhookURL, "/") + cfg.Telegram.WebhookPath
		if err := rt.client.SetWebhook(ctx, target, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
	}
	return nil
}
