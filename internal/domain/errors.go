package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names one step of the photo pipeline.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageIdentify  Stage = "identify"
)

var (
	ErrFetchFailed          = errors.New("fetch failed")
	ErrNormalizeFailed      = errors.New("normalize failed")
	ErrIdentificationFailed = errors.New("identification failed")
	ErrEmptyLabel           = errors.New("empty label")
	ErrWebhookRegistration  = errors.New("webhook registration failed")
	ErrMissingCredential    = errors.New("missing credential")
)

// StageError is a pipeline failure. Kind is one of the sentinel errors above;
// StatusCode, Body and Code are set when the failing stage made an HTTP call.
type StageError struct {
	Stage      Stage
	Kind       error
	StatusCode int
	Body       string
	Code       string
	Err        error
}

func (e *StageError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %v", e.Stage, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " [%s]", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AsStageError wraps err as a failure of stage unless it already is one.
func AsStageError(stage Stage, kind error, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
