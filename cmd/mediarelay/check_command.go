package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediarelay/internal/config"
	"mediarelay/internal/deps"
	"mediarelay/internal/preflight"
	"mediarelay/internal/telegram"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var withTelegram bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, tools, and (optionally) the bot token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			if withTelegram {
				results = append(results, telegramCheck(cmd, cfg))
			}
			statuses := preflight.CheckSystemDeps(cfg)

			fmt.Fprintf(out, "Config: %s", ctx.configPath)
			if !ctx.configSeen {
				fmt.Fprint(out, " (not found, defaults used)")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(tableSpec{
				title:   "Environment",
				headers: []string{"Check", "Status", "Detail"},
				rows:    preflightRows(results, colorize),
			}))
			fmt.Fprintln(out, renderTable(tableSpec{
				title:   "Tools",
				headers: []string{"Tool", "Status", "Required", "Detail"},
				rows:    dependencyRows(statuses, colorize),
			}))

			failed := len(preflight.Failed(results)) + len(deps.Missing(statuses))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withTelegram, "telegram", false, "Also call getMe with the configured bot token")
	return cmd
}

func telegramCheck(cmd *cobra.Command, cfg *config.Config) preflight.Result {
	client, err := telegram.NewClient(telegram.Options{
		Token:          cfg.Telegram.BotToken,
		BaseURL:        cfg.Telegram.APIBaseURL,
		RequestTimeout: config.Seconds(cfg.Telegram.RequestTimeout),
	})
	if err != nil {
		return preflight.Result{Name: "Telegram", Detail: err.Error()}
	}
	return preflight.CheckTelegram(cmd.Context(), client)
}

func preflightRows(results []preflight.Result, colorize bool) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		rows = append(rows, []string{result.Name, statusCell(kind, colorize), result.Detail})
	}
	return rows
}

func dependencyRows(statuses []deps.Status, colorize bool) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		kind := statusOK
		detail := status.Path
		switch {
		case !status.Available && status.Optional:
			kind = statusWarn
			detail = status.Detail
		case !status.Available:
			kind = statusError
			detail = status.Detail
		}
		if strings.TrimSpace(detail) == "" {
			detail = status.Description
		}
		rows = append(rows, []string{status.Name, statusCell(kind, colorize), yesNo(!status.Optional), detail})
	}
	return rows
}
