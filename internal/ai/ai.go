// ABOUTME: Completion provider contract and categorised provider errors
// ABOUTME: Providers return *Error so callers can map failures without parsing text

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/coven-chatops/internal/conversation"
)

// Completer produces a single assistant utterance for a role-tagged message
// sequence. system may be empty. Each call is attempted once.
type Completer interface {
	Complete(ctx context.Context, system string, messages []conversation.Message) (string, error)
}

// Kind classifies a provider failure.
type Kind string

const (
	KindAuth      Kind = "auth"
	KindRateLimit Kind = "rate_limit"
	KindMalformed Kind = "malformed"
	KindTransport Kind = "transport"
)

// Error is returned by every provider in this package.
type Error struct {
	Kind     Kind
	Provider string
	Status   int // HTTP status when the provider answered, 0 otherwise
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the category of err. Errors that did not come from a
// provider are treated as transport failures.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return KindTransport
}

// kindForStatus maps a non-2xx HTTP status to a category.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindTransport
	}
}

// truncate shortens s to maxLen runes for log-safe error bodies.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
