// Package relay turns inbound bot events into labeled shopping links.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"snapbuy/internal/domain"
	"snapbuy/internal/i18n"
	"snapbuy/internal/metrics"
	"snapbuy/internal/redirect"

	"github.com/google/uuid"
)

const minQueryRunes = 3

// Controller runs the photo pipeline for each event and owns every
// user-facing message.
type Controller struct {
	fetcher    domain.Fetcher
	normalizer domain.Normalizer
	identifier domain.Identifier
	replier    domain.Replier
	baseURL    string
	verbose    bool
	logger     *slog.Logger
	newRef     func() string
}

// Config holds the collaborators and settings of a Controller.
type Config struct {
	Fetcher       domain.Fetcher
	Normalizer    domain.Normalizer
	Identifier    domain.Identifier
	Replier       domain.Replier
	BaseURL       string // public base URL the buy button points at
	VerboseErrors bool   // include the error chain in user-facing diagnostics
	Logger        *slog.Logger
}

func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		fetcher:    cfg.Fetcher,
		normalizer: cfg.Normalizer,
		identifier: cfg.Identifier,
		replier:    cfg.Replier,
		baseURL:    cfg.BaseURL,
		verbose:    cfg.VerboseErrors,
		logger:     cfg.Logger,
		newRef:     func() string { return uuid.NewString()[:8] },
	}
}

var _ domain.EventHandler = (*Controller)(nil)

// run is the state threaded through one pipeline invocation.
type run struct {
	event domain.PhotoEvent
	raw   []byte
	jpeg  []byte
	label string
}

type stage struct {
	name domain.Stage
	kind error
	exec func(ctx context.Context, r *run) error
}

func (c *Controller) stages() []stage {
	return []stage{
		{domain.StageFetch, domain.ErrFetchFailed, func(ctx context.Context, r *run) (err error) {
			r.raw, err = c.fetcher.Fetch(ctx, r.event.Photos)
			return err
		}},
		{domain.StageNormalize, domain.ErrNormalizeFailed, func(_ context.Context, r *run) (err error) {
			r.jpeg, err = c.normalizer.Normalize(r.raw)
			return err
		}},
		{domain.StageIdentify, domain.ErrIdentificationFailed, func(ctx context.Context, r *run) (err error) {
			r.label, err = c.identifier.Identify(ctx, r.jpeg)
			if err != nil {
				return err
			}
			r.label = strings.TrimSpace(r.label)
			if r.label == "" {
				return &domain.StageError{Stage: domain.StageIdentify, Kind: domain.ErrEmptyLabel}
			}
			return nil
		}},
	}
}

// HandleStart greets the user.
func (c *Controller) HandleStart(ctx context.Context, chatID int64, languageCode string) {
	loc := i18n.Resolve(languageCode)
	c.reply(ctx, c.logger.With("chat_id", chatID), chatID, i18n.Text(i18n.Welcome, loc))
}

// HandlePhoto acknowledges the photo, runs fetch, normalize and identify in
// order, and answers with either the label and a buy button or a diagnostic.
func (c *Controller) HandlePhoto(ctx context.Context, ev domain.PhotoEvent) {
	metrics.PhotosReceived.Inc()
	loc := i18n.Resolve(ev.LanguageCode)
	ref := c.newRef()
	logger := c.logger.With("chat_id", ev.ChatID, "ref", ref, "locale", loc.String())

	defer func() {
		if p := recover(); p != nil {
			logger.Error("photo pipeline panicked", "panic", p)
			se := &domain.StageError{Kind: fmt.Errorf("panic: %v", p)}
			c.reply(ctx, logger, ev.ChatID, c.describeFailure(loc, se, ref))
		}
	}()

	c.reply(ctx, logger, ev.ChatID, i18n.Text(i18n.Processing, loc))

	r := &run{event: ev}
	for _, s := range c.stages() {
		if err := s.exec(ctx, r); err != nil {
			se := domain.AsStageError(s.name, s.kind, err)
			metrics.StageFailures(se.Stage).Inc()
			logger.Error("photo pipeline failed",
				"stage", se.Stage,
				"status", se.StatusCode,
				"code", se.Code,
				"err", err,
			)
			c.reply(ctx, logger, ev.ChatID, c.describeFailure(loc, se, ref))
			return
		}
		logger.Debug("stage complete", "stage", s.name)
	}

	logger.Info("product identified", "label", r.label, "bytes_raw", len(r.raw), "bytes_jpeg", len(r.jpeg))
	c.sendLabel(ctx, logger, ev.ChatID, loc, r.label)
}

// HandleText cleans a typed product name and answers with it as the label.
func (c *Controller) HandleText(ctx context.Context, ev domain.TextEvent) {
	metrics.TextQueries.Inc()
	loc := i18n.Resolve(ev.LanguageCode)
	logger := c.logger.With("chat_id", ev.ChatID, "locale", loc.String())

	query := redirect.CleanQuery(ev.Text)
	if utf8.RuneCountInString(query) < minQueryRunes {
		c.reply(ctx, logger, ev.ChatID, i18n.Text(i18n.QueryTooShort, loc))
		return
	}
	c.sendLabel(ctx, logger, ev.ChatID, loc, query)
}

func (c *Controller) sendLabel(ctx context.Context, logger *slog.Logger, chatID int64, loc i18n.Locale, label string) {
	text := "📦 " + label
	link := redirect.ButtonURL(c.baseURL, label)
	if err := c.replier.ReplyWithLink(ctx, chatID, text, i18n.Text(i18n.BuyButton, loc), link); err != nil {
		metrics.ReplyFailures.Inc()
		logger.Error("send label reply failed", "err", err)
		return
	}
	metrics.LabelsSent.Inc()
}

func (c *Controller) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	if err := c.replier.Reply(ctx, chatID, text); err != nil {
		metrics.ReplyFailures.Inc()
		logger.Error("send reply failed", "err", err)
	}
}
