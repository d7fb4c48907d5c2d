package main

import (
	"fmt"
	"io"
	"net"
	"strings"

	"snapbuy/internal/channel"
	"snapbuy/internal/config"
	"snapbuy/internal/provider"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on the snapbuy setup",
		Long: `Verifies that the configuration loads, credentials are present, the
HTTP port is free and the bot token is accepted. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapbuy doctor v%s\n", version)
			fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			r := &report{out: out}
			cfg, err := loadConfig()
			if err != nil {
				r.fail("Config", err.Error())
				r.summary()
				return nil
			}
			r.pass("Config", "valid")

			runChecks(r, cfg)

			if cfg.RequireTelegram() == nil {
				tg, err := channel.NewTelegram(channel.TelegramConfig{
					Token:      cfg.Telegram.Token,
					HTTPClient: provider.SharedHTTPClient(0),
					Logger:     logger,
				})
				if err != nil {
					r.fail("Bot token", err.Error())
				} else {
					r.pass("Bot token", "@"+tg.Username())
					if info, err := tg.WebhookInfo(); err == nil {
						want := strings.TrimRight(cfg.Server.BaseURL, "/") + channel.WebhookPath
						switch {
						case cfg.Telegram.Polling && info.URL != "":
							r.warn("Webhook", "set, but polling is enabled; serve will delete it")
						case !cfg.Telegram.Polling && info.URL != want:
							r.warn("Webhook", fmt.Sprintf("registered %q, expected %q", info.URL, want))
						case info.LastErrorMessage != "":
							r.warn("Webhook", "last delivery error: "+info.LastErrorMessage)
						default:
							r.pass("Webhook", info.URL)
						}
					}
				}
			}

			r.summary()
			return nil
		},
	}
}

// runChecks performs the offline checks.
func runChecks(r *report, cfg *config.Config) {
	if err := cfg.RequireTelegram(); err != nil {
		r.fail("Telegram token", err.Error())
	} else {
		r.pass("Telegram token", "set")
	}
	if err := cfg.RequireOpenAI(); err != nil {
		r.fail("OpenAI key", err.Error())
	} else {
		r.pass("OpenAI key", "set ("+cfg.OpenAI.Model+")")
	}

	switch {
	case cfg.Server.BaseURL == "":
		r.warn("Base URL", "not set; buy buttons will be relative")
	case !cfg.WebhookEnabled() && !cfg.Telegram.Polling:
		r.warn("Base URL", "not https; the webhook will not be registered")
	default:
		r.pass("Base URL", cfg.Server.BaseURL)
	}

	if err := checkPort(cfg.Server.Port); err != nil {
		r.warn("HTTP port", fmt.Sprintf("port %d may be in use: %v", cfg.Server.Port, err))
	} else {
		r.pass("HTTP port", fmt.Sprintf(":%d available", cfg.Server.Port))
	}
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return ln.Close()
}

type report struct {
	out                    io.Writer
	passed, failed, warned int
}

func (r *report) pass(check, detail string) {
	fmt.Fprintf(r.out, "  [PASS] %-20s %s\n", check, detail)
	r.passed++
}

func (r *report) fail(check, detail string) {
	fmt.Fprintf(r.out, "  [FAIL] %-20s %s\n", check, detail)
	r.failed++
}

func (r *report) warn(check, detail string) {
	fmt.Fprintf(r.out, "  [WARN] %-20s %s\n", check, detail)
	r.warned++
}

func (r *report) summary() {
	fmt.Fprintf(r.out, "\n%d passed, %d failed, %d warnings\n", r.passed, r.failed, r.warned)
}
