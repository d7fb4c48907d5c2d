package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"snapbuy/internal/channel"
	"snapbuy/internal/config"
	"snapbuy/internal/media"
	"snapbuy/internal/provider"
	"snapbuy/internal/redirect"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func identifyCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "identify [image]",
		Short: "Identify the product in a local image and print its search link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireOpenAI(); err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			jpeg, err := media.NewNormalizer().Normalize(raw)
			if err != nil {
				return err
			}

			vision := provider.NewVision(provider.VisionConfig{
				APIKey:  cfg.OpenAI.APIKey,
				APIBase: cfg.OpenAI.APIBase,
				Model:   cfg.OpenAI.Model,
				Logger:  logger,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			label, err := vision.Identify(ctx, jpeg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "label:  %s\n", label)
			fmt.Fprintf(out, "search: %s\n", redirect.SearchURL(label))
			if cfg.Server.BaseURL != "" {
				fmt.Fprintf(out, "button: %s\n", redirect.ButtonURL(cfg.Server.BaseURL, label))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "inference request timeout")
	return cmd
}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [base-url]",
		Short: "Register <base-url>/webhook (defaults to BASE_URL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tg, err := connectTelegram()
			if err != nil {
				return err
			}
			baseURL := cfg.Server.BaseURL
			if len(args) == 1 {
				baseURL = args[0]
			}
			if err := tg.RegisterWebhook(baseURL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook set: %s%s\n", strings.TrimRight(baseURL, "/"), channel.WebhookPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the registered webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tg, err := connectTelegram()
			if err != nil {
				return err
			}
			if err := tg.DeleteWebhook(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the webhook Telegram currently has on record",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tg, err := connectTelegram()
			if err != nil {
				return err
			}
			info, err := tg.WebhookInfo()
			if err != nil {
				return fmt.Errorf("webhook info: %w", err)
			}
			out := cmd.OutOrStdout()
			url := info.URL
			if url == "" {
				url = "(none)"
			}
			fmt.Fprintf(out, "url:              %s\n", url)
			fmt.Fprintf(out, "pending updates:  %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "last error:       %s (%s)\n", info.LastErrorMessage,
					time.Unix(int64(info.LastErrorDate), 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	})

	return cmd
}

func connectTelegram() (*config.Config, *channel.Telegram, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return nil, nil, err
	}
	tg, err := channel.NewTelegram(channel.TelegramConfig{
		Token:      cfg.Telegram.Token,
		HTTPClient: provider.SharedHTTPClient(0),
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, tg, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Long:  "Show the configuration after defaults, the config file and the environment are applied. Secrets are masked.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(config.Sanitize(cfg))
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. server.port)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List every config path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, p := range config.ListPaths(cfg) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})

	return cmd
}
