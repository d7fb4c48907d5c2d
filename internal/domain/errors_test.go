package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStageError_IsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("pipeline: %w", &StageError{Stage: StageFetch, Kind: ErrFetchFailed, Err: cause})

	if !errors.Is(err, ErrFetchFailed) {
		t.Error("expected errors.Is to match the kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
	if errors.Is(err, ErrNormalizeFailed) {
		t.Error("unexpected match on another kind")
	}
}

func TestStageError_MessageIncludesStatusAndCode(t *testing.T) {
	err := &StageError{Stage: StageIdentify, Kind: ErrIdentificationFailed, StatusCode: 429, Code: "rate_limit_exceeded"}
	msg := err.Error()
	for _, want := range []string{"identify", "identification failed", "429", "rate_limit_exceeded"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestAsStageError_KeepsExisting(t *testing.T) {
	orig := &StageError{Stage: StageIdentify, Kind: ErrEmptyLabel}
	got := AsStageError(StageFetch, ErrFetchFailed, fmt.Errorf("wrapped: %w", orig))
	if got != orig {
		t.Fatalf("expected the original stage error, got %+v", got)
	}
}

func TestAsStageError_WrapsPlainError(t *testing.T) {
	got := AsStageError(StageNormalize, ErrNormalizeFailed, errors.New("bad header"))
	if got.Stage != StageNormalize || !errors.Is(got, ErrNormalizeFailed) {
		t.Fatalf("unexpected stage error: %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	got := Truncate(strings.Repeat("é", 50), 10)
	if utf8.RuneCountInString(got) != 10 {
		t.Errorf("expected 10 runes, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if Truncate("abc", 0) != "" {
		t.Error("expected empty string for n=0")
	}
}

func TestLargestPhoto(t *testing.T) {
	p, ok := LargestPhoto([]PhotoSize{{FileID: "s"}, {FileID: "m"}, {FileID: "l"}})
	if !ok || p.FileID != "l" {
		t.Fatalf("expected last photo, got %+v", p)
	}
	if _, ok := LargestPhoto(nil); ok {
		t.Error("expected no photo for an empty list")
	}
}
