package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"snapbuy/internal/metrics"
	"snapbuy/internal/redirect"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxWebhookBody = 1 << 20

// EdgeConfig configures the public HTTP endpoints.
type EdgeConfig struct {
	Port       int
	Dispatcher *Dispatcher
	Metrics    http.Handler // optional; served at /metrics when set
	Logger     *slog.Logger
}

// Edge serves the health check, the affiliate redirect and the bot webhook.
type Edge struct {
	port       int
	dispatcher *Dispatcher
	metrics    http.Handler
	logger     *slog.Logger
	server     *http.Server
}

func NewEdge(cfg EdgeConfig) *Edge {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Edge{
		port:       cfg.Port,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Routes returns the edge's request multiplexer.
func (e *Edge) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", e.handleHealth)
	mux.HandleFunc("GET "+redirect.GoPath, e.handleGo)
	mux.HandleFunc("POST "+WebhookPath, e.handleWebhook)
	if e.metrics != nil {
		mux.Handle("GET /metrics", e.metrics)
	}
	return mux
}

// Start listens until ctx is cancelled, then shuts the server down.
func (e *Edge) Start(ctx context.Context) error {
	e.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", e.port),
		Handler:           e.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	e.logger.Info("http server starting", "port", e.port)

	errCh := make(chan error, 1)
	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		e.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (e *Edge) handleHealth(w http.ResponseWriter, _ *http.Request) {
	io.WriteString(w, "OK")
}

func (e *Edge) handleGo(w http.ResponseWriter, r *http.Request) {
	metrics.Redirects.Inc()
	http.Redirect(w, r, redirect.SearchURL(r.URL.Query().Get("q")), http.StatusFound)
}

// handleWebhook acknowledges every delivery with 200 so Telegram does not
// redeliver; processing happens after the response.
func (e *Edge) handleWebhook(w http.ResponseWriter, r *http.Request) {
	metrics.WebhookUpdates.Inc()
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		metrics.WebhookRejected.Inc()
		e.logger.Warn("webhook body unreadable", "err", err)
	} else {
		var update tgbotapi.Update
		if err := json.Unmarshal(body, &update); err != nil {
			metrics.WebhookRejected.Inc()
			e.logger.Warn("webhook body is not a bot update", "err", err, "bytes", len(body))
		} else {
			e.dispatcher.Submit(context.WithoutCancel(r.Context()), update)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}
