package channel

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"snapbuy/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Route converts a Telegram update into a domain event and hands it to h.
// It reports whether the update was handled.
func Route(ctx context.Context, u tgbotapi.Update, h domain.EventHandler) bool {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return false
	}
	lang := ""
	if msg.From != nil {
		lang = msg.From.LanguageCode
	}

	switch {
	case msg.IsCommand():
		if msg.Command() != "start" {
			return false
		}
		h.HandleStart(ctx, msg.Chat.ID, lang)
	case len(msg.Photo) > 0:
		photos := make([]domain.PhotoSize, 0, len(msg.Photo))
		for _, p := range msg.Photo {
			photos = append(photos, domain.PhotoSize{
				FileID:   p.FileID,
				Width:    p.Width,
				Height:   p.Height,
				FileSize: p.FileSize,
			})
		}
		h.HandlePhoto(ctx, domain.PhotoEvent{
			ChatID:       msg.Chat.ID,
			MessageID:    msg.MessageID,
			LanguageCode: lang,
			Photos:       photos,
		})
	case strings.TrimSpace(msg.Text) != "":
		h.HandleText(ctx, domain.TextEvent{
			ChatID:       msg.Chat.ID,
			MessageID:    msg.MessageID,
			LanguageCode: lang,
			Text:         msg.Text,
		})
	default:
		return false
	}
	return true
}

// Dispatcher runs each update on its own goroutine and tracks them so
// shutdown can wait for in-flight work.
type Dispatcher struct {
	handler domain.EventHandler
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(h domain.EventHandler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: h, logger: logger}
}

// Submit routes u asynchronously. A panic in handling is logged, never
// propagated.
func (d *Dispatcher) Submit(ctx context.Context, u tgbotapi.Update) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				d.logger.Error("update handling panicked", "update_id", u.UpdateID, "panic", p)
			}
		}()
		if !Route(ctx, u, d.handler) {
			d.logger.Debug("update ignored", "update_id", u.UpdateID)
		}
	}()
}

// Wait blocks until in-flight updates finish or timeout elapses.
// It reports whether everything finished.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
