// ABOUTME: Moderation pipeline that evaluates link and spam policies per message
// ABOUTME: Deletes offending messages when the bot is an administrator, records every trigger

package moderation

import (
	"context"
	"log/slog"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/store"
)

// Outcome is the result of evaluating a message.
type Outcome int

const (
	// Clear lets the message continue to the AI path.
	Clear Outcome = iota
	// Suppressed means a policy triggered and the message was deleted.
	Suppressed
	// Unenforceable means a policy triggered but the message could not be deleted.
	Unenforceable
)

func (o Outcome) String() string {
	switch o {
	case Clear:
		return "clear"
	case Suppressed:
		return "suppressed"
	case Unenforceable:
		return "unenforceable"
	default:
		return "unknown"
	}
}

// Policy names used in logs and audit detail.
const (
	PolicyLink = "antilink"
	PolicySpam = "antispam"
)

// Channel is the slice of the chat network the pipeline needs.
type Channel interface {
	IsAdministrator(ctx context.Context, chatID conversation.ChatID, participantID string) (bool, error)
	SelfID() string
	DeleteMessage(ctx context.Context, chatID conversation.ChatID, ref string) error
}

// Recorder receives an entry for every policy trigger.
// store.SQLiteStore and store.MockStore satisfy it.
type Recorder interface {
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
}

// Message is what the pipeline evaluates.
type Message struct {
	ChatID   conversation.ChatID
	SenderID string
	Text     string
	Ref      string // channel-specific reference used for deletion
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLinkPredicate replaces the link detector.
func WithLinkPredicate(p Predicate) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.isLink = p
		}
	}
}

// WithSpamPredicate replaces the spam detector.
func WithSpamPredicate(p Predicate) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.isSpam = p
		}
	}
}

// WithRecorder sends trigger records to r.
func WithRecorder(r Recorder) Option {
	return func(pl *Pipeline) {
		pl.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// Pipeline evaluates moderation policies. It never mutates chat state.
type Pipeline struct {
	channel  Channel
	isLink   Predicate
	isSpam   Predicate
	recorder Recorder
	logger   *slog.Logger
}

// NewPipeline creates a pipeline with the default predicates.
func NewPipeline(channel Channel, opts ...Option) *Pipeline {
	p := &Pipeline{
		channel: channel,
		isLink:  ContainsLink,
		isSpam:  LongerThan(DefaultSpamThreshold),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "moderation")
	return p
}

// Evaluate runs the policies against msg under the given settings.
func (p *Pipeline) Evaluate(ctx context.Context, settings conversation.ChatSettings, msg Message) Outcome {
	if !settings.AntiLinkEnabled && !settings.AntiSpamEnabled {
		return Clear
	}

	if p.isAdmin(ctx, msg.ChatID, msg.SenderID) {
		return Clear
	}

	policy := p.trigger(settings, msg.Text)
	if policy == "" {
		return Clear
	}

	logger := p.logger.With("chat_id", msg.ChatID, "sender", msg.SenderID, "policy", policy)

	if !p.isAdmin(ctx, msg.ChatID, p.channel.SelfID()) {
		logger.Warn("policy triggered but bot is not an administrator")
		p.record(ctx, msg, store.AuditPolicyUnenforceable, policy, "bot is not an administrator")
		return Unenforceable
	}

	if err := p.channel.DeleteMessage(ctx, msg.ChatID, msg.Ref); err != nil {
		logger.Error("failed to delete message", "error", err)
		p.record(ctx, msg, store.AuditPolicyUnenforceable, policy, "delete failed")
		return Unenforceable
	}

	logger.Info("message suppressed")
	p.record(ctx, msg, store.AuditMessageSuppressed, policy, "")
	return Suppressed
}

// trigger returns the first policy that matches, or "".
func (p *Pipeline) trigger(settings conversation.ChatSettings, text string) string {
	if settings.AntiLinkEnabled && p.isLink(text) {
		return PolicyLink
	}
	if settings.AntiSpamEnabled && p.isSpam(text) {
		return PolicySpam
	}
	return ""
}

// isAdmin treats a failed privilege query as "not an administrator".
func (p *Pipeline) isAdmin(ctx context.Context, chatID conversation.ChatID, participantID string) bool {
	ok, err := p.channel.IsAdministrator(ctx, chatID, participantID)
	if err != nil {
		p.logger.Warn("administrator query failed, assuming non-admin",
			"chat_id", chatID,
			"participant", participantID,
			"error", err,
		)
		return false
	}
	return ok
}

func (p *Pipeline) record(ctx context.Context, msg Message, action store.AuditAction, policy, reason string) {
	if p.recorder == nil {
		return
	}
	detail := map[string]any{"policy": policy}
	if reason != "" {
		detail["reason"] = reason
	}
	err := p.recorder.AppendAuditLog(ctx, &store.AuditEntry{
		ChatID:  string(msg.ChatID),
		ActorID: msg.SenderID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		p.logger.Error("failed to record moderation outcome", "error", err, "chat_id", msg.ChatID)
	}
}
