// Package media downloads photos from the bot transport and prepares them
// for the vision model.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"snapbuy/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Bot API file downloads are capped at 20 MB.
	defaultMaxDownloadBytes = 20 << 20
	maxErrorBodyRunes       = 500
)

// FileResolver turns a transport file ID into a downloadable URL.
// *tgbotapi.BotAPI satisfies it.
type FileResolver interface {
	GetFileDirectURL(fileID string) (string, error)
}

// Fetcher downloads the largest photo size of a message.
type Fetcher struct {
	files    FileResolver
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

type FetcherConfig struct {
	Files    FileResolver
	Client   *http.Client
	MaxBytes int64
	Logger   *slog.Logger
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxDownloadBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		files:    cfg.Files,
		client:   cfg.Client,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}
}

// Fetch resolves the last entry of photos and returns its raw bytes.
func (f *Fetcher) Fetch(ctx context.Context, photos []domain.PhotoSize) ([]byte, error) {
	photo, ok := domain.LargestPhoto(photos)
	if !ok {
		return nil, fetchErr(errors.New("message has no photo"))
	}

	link, err := f.files.GetFileDirectURL(photo.FileID)
	if err != nil {
		se := fetchErr(fmt.Errorf("resolve file: %w", err))
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) {
			se.StatusCode = tgErr.Code
			se.Body = domain.Truncate(tgErr.Message, maxErrorBodyRunes)
		}
		return nil, se
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fetchErr(redact(err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchErr(redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		se := fetchErr(fmt.Errorf("download returned %d", resp.StatusCode))
		se.StatusCode = resp.StatusCode
		se.Body = domain.Truncate(strings.TrimSpace(string(body)), maxErrorBodyRunes)
		return nil, se
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fetchErr(fmt.Errorf("read body: %w", redact(err)))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fetchErr(fmt.Errorf("file exceeds %d bytes", f.maxBytes))
	}
	if len(data) == 0 {
		return nil, fetchErr(errors.New("downloaded file is empty"))
	}

	f.logger.Debug("photo downloaded",
		"file_id", photo.FileID,
		"width", photo.Width,
		"height", photo.Height,
		"bytes", len(data),
	)
	return data, nil
}

func fetchErr(err error) *domain.StageError {
	return &domain.StageError{Stage: domain.StageFetch, Kind: domain.ErrFetchFailed, Err: err}
}

// redact drops the request URL from transport errors; file links embed the bot token.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s file: %w", strings.ToLower(ue.Op), ue.Err)
	}
	return err
}
