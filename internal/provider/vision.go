// Package provider talks to the vision inference API.
package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"snapbuy/internal/domain"
	"snapbuy/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = "gpt-4o"
	DefaultPrompt    = "What product is in this image? Reply with short product name only."
	defaultMaxTokens = 50

	maxErrorBodyRunes = 500
)

// Vision identifies products in images through an OpenAI-compatible chat
// completions endpoint.
type Vision struct {
	client    *openai.Client
	model     string
	prompt    string
	maxTokens int
	logger    *slog.Logger
}

type VisionConfig struct {
	APIKey     string
	APIBase    string // optional, e.g. "https://api.openai.com/v1"
	Model      string
	Prompt     string
	MaxTokens  int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewVision(cfg VisionConfig) *Vision {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.APIBase, "/")
	}
	clientConfig.HTTPClient = cfg.HTTPClient

	return &Vision{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		prompt:    cfg.Prompt,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

func (v *Vision) Model() string { return v.model }

// Identify sends one JPEG image and returns the trimmed product label.
// A blank answer is reported as domain.ErrEmptyLabel.
func (v *Vision) Identify(ctx context.Context, jpeg []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	req := openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: v.prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
		MaxTokens: v.maxTokens,
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, req)
	metrics.IdentifyLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", identifyErr(err)
	}

	var label string
	if len(resp.Choices) > 0 {
		label = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if label == "" {
		finish := ""
		if len(resp.Choices) > 0 {
			finish = string(resp.Choices[0].FinishReason)
		}
		return "", &domain.StageError{
			Stage: domain.StageIdentify,
			Kind:  domain.ErrEmptyLabel,
			Err:   fmt.Errorf("model %s returned no text (choices=%d, finish=%q)", v.model, len(resp.Choices), finish),
		}
	}

	v.logger.Debug("product identified",
		"model", v.model,
		"label", label,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"latency", time.Since(start),
	)
	return label, nil
}

// identifyErr keeps the HTTP status, error code and a bounded body excerpt
// of a failed inference call.
func identifyErr(err error) *domain.StageError {
	se := &domain.StageError{Stage: domain.StageIdentify, Kind: domain.ErrIdentificationFailed, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		se.StatusCode = apiErr.HTTPStatusCode
		se.Body = domain.Truncate(apiErr.Message, maxErrorBodyRunes)
		switch code := apiErr.Code.(type) {
		case string:
			se.Code = code
		case nil:
		default:
			se.Code = fmt.Sprint(code)
		}
		if se.Code == "" {
			se.Code = apiErr.Type
		}
	case errors.As(err, &reqErr):
		se.StatusCode = reqErr.HTTPStatusCode
		se.Body = domain.Truncate(strings.TrimSpace(string(reqErr.Body)), maxErrorBodyRunes)
	}
	return se
}
