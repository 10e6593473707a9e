// ABOUTME: Session coordinator that routes each inbound event down one path
// ABOUTME: Command, moderation, then AI; membership events drive welcome messages

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/coven-chatops/internal/assistant"
	"github.com/2389/coven-chatops/internal/commands"
	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/moderation"
)

// Config wires a Coordinator to its collaborators. All but Logger are required.
type Config struct {
	Store      *conversation.Store
	Channel    Channel
	Commands   *commands.Dispatcher
	Moderation *moderation.Pipeline
	Assistant  *assistant.Orchestrator

	// TypingIndicator toggles composing/paused presence around AI calls.
	TypingIndicator bool
	Logger          *slog.Logger
}

// Coordinator handles inbound events for one channel.
type Coordinator struct {
	store      *conversation.Store
	channel    Channel
	commands   *commands.Dispatcher
	moderation *moderation.Pipeline
	assistant  *assistant.Orchestrator
	typing     bool
	lanes      *Lanes
	logger     *slog.Logger
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("session: store is required")
	case cfg.Channel == nil:
		return nil, errors.New("session: channel is required")
	case cfg.Commands == nil:
		return nil, errors.New("session: command dispatcher is required")
	case cfg.Moderation == nil:
		return nil, errors.New("session: moderation pipeline is required")
	case cfg.Assistant == nil:
		return nil, errors.New("session: assistant is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		store:      cfg.Store,
		channel:    cfg.Channel,
		commands:   cfg.Commands,
		moderation: cfg.Moderation,
		assistant:  cfg.Assistant,
		typing:     cfg.TypingIndicator,
		lanes:      NewLanes(logger),
		logger:     logger.With("component", "session"),
	}, nil
}

// SubmitMessage queues msg on its chat's lane.
func (c *Coordinator) SubmitMessage(ctx context.Context, msg Message) bool {
	return c.lanes.Submit(string(msg.ChatID), func() {
		c.HandleMessage(ctx, msg)
	})
}

// SubmitMembership queues ev on its chat's lane.
func (c *Coordinator) SubmitMembership(ctx context.Context, ev MembershipChange) bool {
	return c.lanes.Submit(string(ev.ChatID), func() {
		c.HandleMembership(ctx, ev)
	})
}

// Shutdown stops accepting events and waits for queued ones to finish.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.lanes.Close()
	return c.lanes.Wait(ctx)
}

// HandleMessage processes one message to completion. Callers that handle
// messages concurrently must serialise per chat; SubmitMessage does.
func (c *Coordinator) HandleMessage(ctx context.Context, msg Message) {
	logger := c.logger.With("chat_id", msg.ChatID, "sender", msg.SenderID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling message", "panic", fmt.Sprint(r))
		}
	}()

	if msg.SenderID == c.channel.SelfID() || strings.TrimSpace(msg.Text) == "" {
		return
	}

	settings := c.store.Settings(msg.ChatID)

	if c.commands.IsCommand(msg.Text) {
		c.handleCommand(ctx, logger, msg)
		return
	}

	if msg.IsGroup {
		outcome := c.moderation.Evaluate(ctx, settings, moderation.Message{
			ChatID:   msg.ChatID,
			SenderID: msg.SenderID,
			Text:     msg.Text,
			Ref:      msg.Ref,
		})
		if outcome == moderation.Suppressed {
			logger.Info("message suppressed, skipping AI")
			return
		}
	}

	if msg.IsGroup && !settings.AIEnabled {
		logger.Debug("AI disabled for group, skipping")
		return
	}

	req, ok := c.assistant.Prepare(msg.ChatID, msg.Text)
	if !ok {
		c.send(ctx, logger, msg.ChatID, assistant.FallbackNoRequest, "")
		return
	}

	reply := c.complete(ctx, logger, msg.ChatID, req)
	c.send(ctx, logger, msg.ChatID, reply.Text, "")
}

func (c *Coordinator) handleCommand(ctx context.Context, logger *slog.Logger, msg Message) {
	req := commands.Request{
		ChatID:   msg.ChatID,
		IsGroup:  msg.IsGroup,
		SenderID: msg.SenderID,
		Text:     msg.Text,
		Ref:      msg.Ref,
	}
	if name, _, _ := c.commands.Parse(msg.Text); msg.IsGroup && commands.IsAdminOnly(name) {
		req.SenderIsAdmin = c.isAdmin(ctx, logger, msg.ChatID, msg.SenderID)
	}

	res, _ := c.commands.TryDispatch(ctx, req)
	if res.Silent || res.Reply == "" {
		return
	}
	c.send(ctx, logger, msg.ChatID, res.Reply, msg.Ref)
}

// complete wraps the provider call in a composing indicator that is always
// cleared before the reply is delivered.
func (c *Coordinator) complete(ctx context.Context, logger *slog.Logger, chatID conversation.ChatID, req conversation.Request) (reply assistant.Reply) {
	if c.typing {
		c.presence(ctx, logger, chatID, PresenceComposing)
		defer c.presence(ctx, logger, chatID, PresencePaused)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic during AI processing", "panic", fmt.Sprint(r))
			reply = assistant.Reply{Text: assistant.FallbackUnexpected}
		}
	}()
	return c.assistant.Complete(ctx, chatID, req)
}

// HandleMembership greets new participants when the chat asked for it.
func (c *Coordinator) HandleMembership(ctx context.Context, ev MembershipChange) {
	logger := c.logger.With("chat_id", ev.ChatID, "action", ev.Action)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling membership change", "panic", fmt.Sprint(r))
		}
	}()

	if ev.Action != MembershipAdd {
		return
	}

	settings, ok := c.store.LookupSettings(ev.ChatID)
	if !ok || !settings.WelcomeEnabled {
		return
	}

	self := c.channel.SelfID()
	mentions := make([]string, 0, len(ev.Participants))
	for _, p := range ev.Participants {
		if p != self {
			mentions = append(mentions, c.channel.Mention(p))
		}
	}
	if len(mentions) == 0 {
		return
	}

	if !c.isAdmin(ctx, logger, ev.ChatID, self) {
		logger.Warn("welcome enabled but bot is not an administrator")
		return
	}

	text := fmt.Sprintf("Welcome to the group, %s! 🎉", strings.Join(mentions, " "))
	if err := c.channel.SendText(ctx, ev.ChatID, text, ""); err != nil {
		logger.Error("failed to send welcome message", "error", err)
		return
	}
	logger.Info("sent welcome message", "participants", len(mentions))
}

func (c *Coordinator) isAdmin(ctx context.Context, logger *slog.Logger, chatID conversation.ChatID, participantID string) bool {
	ok, err := c.channel.IsAdministrator(ctx, chatID, participantID)
	if err != nil {
		logger.Warn("administrator query failed, assuming non-admin", "participant", participantID, "error", err)
		return false
	}
	return ok
}

func (c *Coordinator) send(ctx context.Context, logger *slog.Logger, chatID conversation.ChatID, text, replyTo string) {
	if err := c.channel.SendText(ctx, chatID, text, replyTo); err != nil {
		logger.Error("failed to send message", "error", err)
	}
}

func (c *Coordinator) presence(ctx context.Context, logger *slog.Logger, chatID conversation.ChatID, p Presence) {
	if err := c.channel.SetPresence(ctx, chatID, p); err != nil {
		logger.Debug("failed to set presence", "presence", p, "error", err)
	}
}
