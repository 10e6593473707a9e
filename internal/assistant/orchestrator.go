// ABOUTME: AI orchestrator that turns a chat's history into one assistant reply
// ABOUTME: Two phases: Prepare appends the user turn, Complete calls the provider once

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chatops/internal/ai"
	"github.com/2389/coven-chatops/internal/conversation"
)

// User-facing fallbacks. None of them reveal provider error details.
const (
	FallbackAuth       = "AI API authentication failed. Please check the API key."
	FallbackRateLimit  = "AI rate limit reached. Please try again later."
	FallbackMalformed  = "Sorry, I received an unexpected response from the AI."
	FallbackTransport  = "Sorry, I encountered an error trying to reach the AI."
	FallbackNoRequest  = "Sorry, I couldn't get a response from the AI right now."
	FallbackUnexpected = "Sorry, an error occurred while processing the AI response."
)

// Fallback returns the reply shown for a provider failure of kind k.
func Fallback(k ai.Kind) string {
	switch k {
	case ai.KindAuth:
		return FallbackAuth
	case ai.KindRateLimit:
		return FallbackRateLimit
	case ai.KindMalformed:
		return FallbackMalformed
	default:
		return FallbackTransport
	}
}

// Reply is the outcome of Complete. OK is false when Text is a fallback.
type Reply struct {
	Text string
	OK   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDefaultSystem sets the instruction used when a history has no system message.
func WithDefaultSystem(prompt string) Option {
	return func(o *Orchestrator) {
		o.defaultSystem = prompt
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator drives one request/response cycle per user message. After the
// user turn is appended it is the only writer of a chat's history.
type Orchestrator struct {
	store         *conversation.Store
	completer     ai.Completer
	defaultSystem string
	logger        *slog.Logger
}

// New creates an Orchestrator.
func New(st *conversation.Store, completer ai.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:     st,
		completer: completer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "assistant")
	return o
}

// Prepare appends the user's text to the chat history and builds the provider
// request from the result. false means there is no eligible request; the
// caller should show FallbackNoRequest and must not call Complete.
func (o *Orchestrator) Prepare(chatID conversation.ChatID, text string) (conversation.Request, bool) {
	history := o.store.AppendAndTrim(chatID, conversation.Message{Role: conversation.RoleUser, Content: text})

	req, ok := conversation.BuildRequest(history)
	if !ok {
		o.logger.Warn("history has no eligible request", "chat_id", chatID, "history_len", len(history))
		return req, false
	}
	if req.System == "" {
		req.System = o.defaultSystem
	}
	return req, true
}

// Complete calls the provider exactly once. On success the reply is appended
// to history; on failure history stays as Prepare left it and the mapped
// fallback is returned.
func (o *Orchestrator) Complete(ctx context.Context, chatID conversation.ChatID, req conversation.Request) (reply Reply) {
	requestID := uuid.New().String()
	logger := o.logger.With("chat_id", chatID, "request_id", requestID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during completion", "panic", fmt.Sprint(r))
			reply = Reply{Text: FallbackUnexpected}
		}
	}()

	logger.Info("requesting completion", "messages", len(req.Messages), "system", req.System != "")
	start := time.Now()

	text, err := o.completer.Complete(ctx, req.System, req.Messages)
	if err != nil {
		kind := ai.KindOf(err)
		logger.Error("completion failed", "kind", kind, "error", err, "duration", time.Since(start))
		return Reply{Text: Fallback(kind)}
	}

	o.store.AppendAndTrim(chatID, conversation.Message{Role: conversation.RoleAssistant, Content: text})
	logger.Info("completion received", "duration", time.Since(start), "length", len(text))
	return Reply{Text: text, OK: true}
}
