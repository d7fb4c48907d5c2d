package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"snapbuy/internal/config"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "snapbuy",
		Short:         "snapbuy: photo-to-product Telegram bot",
		Long:          "snapbuy identifies the product in a photo sent to a Telegram bot and replies with an affiliate search link.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (environment variables always apply)")

	root.AddCommand(serveCmd())
	root.AddCommand(identifyCmd())
	root.AddCommand(webhookCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadConfig loads the configuration and rebuilds the process logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.Log, os.Stderr)
	return cfg, nil
}

func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "snapbuy %s\n", version)
		},
	}
}
