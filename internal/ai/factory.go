// ABOUTME: Provider selection by name and an optional per-call timeout wrapper
// ABOUTME: Keeps cmd/ free of provider-specific construction details

package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/2389/coven-chatops/internal/conversation"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Options describes a provider instance.
type Options struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// New builds the Completer named by opts.Provider.
func New(opts Options) (Completer, error) {
	var c Completer
	switch opts.Provider {
	case "", ProviderAnthropic:
		c = NewAnthropicClient(opts.APIKey, opts.BaseURL, opts.Model, opts.MaxTokens)
	case ProviderOpenAI:
		if opts.Model == "" {
			return nil, fmt.Errorf("model is required for provider %q", opts.Provider)
		}
		c = NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Provider)
	}

	if opts.Timeout > 0 {
		c = WithTimeout(c, opts.Timeout)
	}
	return c, nil
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to next. An expired deadline is reported as
// KindTransport like any other network failure.
func WithTimeout(next Completer, timeout time.Duration) Completer {
	return &timeoutCompleter{next: next, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, system string, messages []conversation.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, system, messages)
}
