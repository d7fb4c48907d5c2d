package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"snapbuy/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestVision(t *testing.T, h http.HandlerFunc) *Vision {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewVision(VisionConfig{
		APIKey:     "sk-test",
		APIBase:    srv.URL + "/v1",
		HTTPClient: srv.Client(),
		Logger:     testLogger(),
	})
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
	})
	return string(b)
}

func TestIdentify_SendsVisionRequest(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	var got capturedRequest
	var auth, path string

	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("  Wireless Mouse \n"))
	})

	label, err := v.Identify(context.Background(), image)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "Wireless Mouse" {
		t.Errorf("expected trimmed label, got %q", label)
	}

	if path != "/v1/chat/completions" {
		t.Errorf("unexpected path %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if got.Model != DefaultModel || got.MaxTokens != 50 {
		t.Errorf("unexpected model/max_tokens: %s/%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("expected one user message, got %+v", got.Messages)
	}
	parts := got.Messages[0].Content
	if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
		t.Fatalf("unexpected content parts: %+v", parts)
	}
	if parts[0].Text != DefaultPrompt {
		t.Errorf("unexpected prompt %q", parts[0].Text)
	}
	wantURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	if parts[1].ImageURL == nil || parts[1].ImageURL.URL != wantURL {
		t.Errorf("unexpected image url part: %+v", parts[1].ImageURL)
	}
}

func TestIdentify_WithoutLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("Desk Lamp"))
	}))
	defer srv.Close()

	v := NewVision(VisionConfig{APIKey: "sk-test", APIBase: srv.URL + "/v1", HTTPClient: srv.Client()})
	label, err := v.Identify(context.Background(), []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "Desk Lamp" {
		t.Errorf("unexpected label %q", label)
	}
}

func TestIdentify_BlankAnswerIsEmptyLabel(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion(" \n\t "))
	})

	label, err := v.Identify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, domain.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got label=%q err=%v", label, err)
	}
	if label != "" {
		t.Errorf("expected no label, got %q", label)
	}
}

func TestIdentify_NoChoicesIsEmptyLabel(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	_, err := v.Identify(context.Background(), []byte("jpeg"))
	if !errors.Is(err, domain.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
}

func TestIdentify_RateLimited(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"Rate limit reached for gpt-4o","type":"requests","param":null,"code":"rate_limit_exceeded"}}`)
	})

	_, err := v.Identify(context.Background(), []byte("jpeg"))
	var se *domain.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if !errors.Is(err, domain.ErrIdentificationFailed) {
		t.Errorf("expected ErrIdentificationFailed, got %v", se.Kind)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", se.StatusCode)
	}
	if se.Code != "rate_limit_exceeded" {
		t.Errorf("unexpected code %q", se.Code)
	}
	if !strings.Contains(se.Body, "Rate limit reached") {
		t.Errorf("unexpected body %q", se.Body)
	}
}

func TestIdentify_NonJSONErrorBodyIsTruncated(t *testing.T) {
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>"+strings.Repeat("upstream down ", 200)+"</html>")
	})

	_, err := v.Identify(context.Background(), []byte("jpeg"))
	var se *domain.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", se.StatusCode)
	}
	if n := len([]rune(se.Body)); n == 0 || n > maxErrorBodyRunes {
		t.Errorf("expected bounded non-empty body, got %d runes", n)
	}
}

func TestIdentify_NoRetry(t *testing.T) {
	calls := 0
	v := newTestVision(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	if _, err := v.Identify(context.Background(), []byte("jpeg")); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single request, got %d", calls)
	}
}
