package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapbuy/internal/channel"
	"snapbuy/internal/media"
	"snapbuy/internal/metrics"
	"snapbuy/internal/provider"
	"snapbuy/internal/relay"

	"github.com/spf13/cobra"
)

const drainTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot: HTTP edge, webhook (or polling) and the photo pipeline",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	// Graceful shutdown on signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := provider.SharedHTTPClient(0)

	tg, err := channel.NewTelegram(channel.TelegramConfig{
		Token:      cfg.Telegram.Token,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	vision := provider.NewVision(provider.VisionConfig{
		APIKey:     cfg.OpenAI.APIKey,
		APIBase:    cfg.OpenAI.APIBase,
		Model:      cfg.OpenAI.Model,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	controller := relay.New(relay.Config{
		Fetcher: media.NewFetcher(media.FetcherConfig{
			Files:  tg,
			Client: httpClient,
			Logger: logger,
		}),
		Normalizer:    media.NewNormalizer(),
		Identifier:    vision,
		Replier:       tg,
		BaseURL:       cfg.Server.BaseURL,
		VerboseErrors: cfg.Diagnostics.Verbose,
		Logger:        logger,
	})

	dispatcher := channel.NewDispatcher(controller, logger)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Collector.Handler()
	}
	edge := channel.NewEdge(channel.EdgeConfig{
		Port:       cfg.Server.Port,
		Dispatcher: dispatcher,
		Metrics:    metricsHandler,
		Logger:     logger,
	})

	if cfg.Server.BaseURL == "" {
		logger.Warn("BASE_URL is not set; buy buttons will carry a relative link")
	}

	switch {
	case cfg.Telegram.Polling:
		go func() {
			if err := tg.Poll(ctx, dispatcher); err != nil {
				logger.Error("telegram polling stopped", "err", err)
			}
		}()
	case cfg.WebhookEnabled():
		if err := tg.RegisterWebhook(cfg.Server.BaseURL); err != nil {
			logger.Error("webhook registration failed", "err", err)
		}
	default:
		logger.Warn("webhook not registered; BASE_URL must be https", "base_url", cfg.Server.BaseURL)
	}

	logger.Info("snapbuy started",
		"version", version,
		"bot", tg.Username(),
		"model", vision.Model(),
		"polling", cfg.Telegram.Polling,
	)

	err = edge.Start(ctx)

	if !dispatcher.Wait(drainTimeout) {
		logger.Warn("in-flight updates still running at shutdown", "timeout", drainTimeout)
	}
	logger.Info("snapbuy stopped")
	return err
}
