package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"snapbuy/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookPath is where the HTTP edge accepts bot updates.
const WebhookPath = "/webhook"

// Telegram is the bot transport: replies, file lookups, webhook management
// and long polling.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

type TelegramConfig struct {
	Token       string
	APIEndpoint string // defaults to tgbotapi.APIEndpoint
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// NewTelegram connects to the Bot API; it fails if the token is rejected.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)
	return &Telegram{bot: bot, logger: cfg.Logger}, nil
}

// Username returns the bot's @handle.
func (t *Telegram) Username() string { return t.bot.Self.UserName }

// Reply sends plain text. Labels come from a model, so no parse mode is set.
func (t *Telegram) Reply(_ context.Context, chatID int64, text string) error {
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// ReplyWithLink sends text with a single inline URL button under it.
func (t *Telegram) ReplyWithLink(_ context.Context, chatID int64, text, buttonText, url string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(buttonText, url),
		),
	)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send with button: %w", err)
	}
	return nil
}

// GetFileDirectURL resolves a file ID to its download link.
func (t *Telegram) GetFileDirectURL(fileID string) (string, error) {
	return t.bot.GetFileDirectURL(fileID)
}

// RegisterWebhook points the bot at baseURL+WebhookPath. Telegram only
// delivers to https endpoints, so other base URLs are refused up front.
func (t *Telegram) RegisterWebhook(baseURL string) error {
	if !strings.HasPrefix(baseURL, "https://") {
		return fmt.Errorf("%w: base URL %q is not https", domain.ErrWebhookRegistration, baseURL)
	}
	link := strings.TrimRight(baseURL, "/") + WebhookPath
	wh, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWebhookRegistration, err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWebhookRegistration, err)
	}
	t.logger.Info("webhook set", "url", link)
	return nil
}

// DeleteWebhook removes any registered webhook.
func (t *Telegram) DeleteWebhook() error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// WebhookInfo reports the currently registered webhook.
func (t *Telegram) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	return t.bot.GetWebhookInfo()
}

// Poll long-polls for updates until ctx is cancelled, handing each one to d.
// Any webhook is removed first; Telegram refuses getUpdates while one is set.
func (t *Telegram) Poll(ctx context.Context, d *Dispatcher) error {
	if err := t.DeleteWebhook(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram polling stopping")
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			d.Submit(context.WithoutCancel(ctx), update)
		}
	}
}
