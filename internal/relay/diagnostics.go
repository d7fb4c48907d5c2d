package relay

import (
	"errors"
	"fmt"
	"strings"

	"snapbuy/internal/domain"
	"snapbuy/internal/i18n"
)

const (
	maxExcerptRunes = 400
	maxTraceRunes   = 800
	maxMessageRunes = 1500
)

// describeFailure renders the single message a user sees when a run fails:
// header, cause, HTTP excerpt and code when known, then either the error
// chain (verbose) or the incident reference.
func (c *Controller) describeFailure(loc i18n.Locale, se *domain.StageError, ref string) string {
	var sb strings.Builder
	sb.WriteString(i18n.Text(i18n.ErrorHeader, loc))
	sb.WriteString("\n")
	sb.WriteString(i18n.Text(causeKey(se), loc))

	if se.StatusCode != 0 {
		fmt.Fprintf(&sb, "\nHTTP %d", se.StatusCode)
		if body := strings.TrimSpace(se.Body); body != "" {
			sb.WriteString(": ")
			sb.WriteString(domain.Truncate(body, maxExcerptRunes))
		}
	}
	if se.Code != "" {
		fmt.Fprintf(&sb, "\nCode: %s", se.Code)
	}

	sb.WriteString("\n\n")
	if c.verbose {
		fmt.Fprintf(&sb, "ref %s\n%s", ref, domain.Truncate(se.Error(), maxTraceRunes))
	} else {
		fmt.Fprintf(&sb, i18n.Text(i18n.SeeLogs, loc), ref)
	}
	return domain.Truncate(sb.String(), maxMessageRunes)
}

func causeKey(se *domain.StageError) i18n.Key {
	switch {
	case errors.Is(se.Kind, domain.ErrEmptyLabel):
		return i18n.CauseEmptyLabel
	case errors.Is(se.Kind, domain.ErrFetchFailed):
		return i18n.CauseFetch
	case errors.Is(se.Kind, domain.ErrNormalizeFailed):
		return i18n.CauseNormalize
	case errors.Is(se.Kind, domain.ErrIdentificationFailed):
		return i18n.CauseIdentify
	default:
		return i18n.CauseUnknown
	}
}
