// ABOUTME: Command dispatcher that recognises prefixed commands and runs them
// ABOUTME: Enforces the admin gate, mutates chat settings and records admin actions

package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/store"
)

// DefaultPrefix starts every command unless configured otherwise.
const DefaultPrefix = "!"

// Fixed replies.
const (
	ReplyAdminOnly      = "Sorry, only group admins can use this command."
	ReplyUnknownCommand = "Unknown command."
	ReplyGroupOnly      = "This command is only for groups."
)

// GroupInfo is channel-side metadata for a group chat.
type GroupInfo struct {
	Subject      string
	Participants int
}

// Channel is the slice of the chat network commands act on.
type Channel interface {
	SelfID() string
	IsAdministrator(ctx context.Context, chatID conversation.ChatID, participantID string) (bool, error)
	GroupInfo(ctx context.Context, chatID conversation.ChatID) (GroupInfo, error)
	RenameGroup(ctx context.Context, chatID conversation.ChatID, name string) error
	LeaveGroup(ctx context.Context, chatID conversation.ChatID) error
	SendText(ctx context.Context, chatID conversation.ChatID, text, replyTo string) error
	SendImage(ctx context.Context, chatID conversation.ChatID, url, caption string) error
}

// Request describes one inbound command candidate.
type Request struct {
	ChatID        conversation.ChatID
	IsGroup       bool
	SenderID      string
	SenderIsAdmin bool
	Text          string
	Ref           string
}

// Result is what the caller should send back. Silent means send nothing.
type Result struct {
	Reply  string
	Silent bool
}

func reply(text string) Result { return Result{Reply: text} }

var silent = Result{Silent: true}

// adminOnly lists commands reserved for group administrators.
var adminOnly = map[string]bool{
	"aion":            true,
	"aioff":           true,
	"antilink":        true,
	"welcome":         true,
	"antispam":        true,
	"setgroupsubject": true,
	"leave":           true,
	"modlog":          true,
}

// IsAdminOnly reports whether name requires a group administrator.
func IsAdminOnly(name string) bool {
	return adminOnly[strings.ToLower(name)]
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrefix sets the command prefix. Empty keeps the default.
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithAuditLog records admin actions to log and enables the modlog command.
func WithAuditLog(log store.AuditLog) Option {
	return func(d *Dispatcher) {
		d.audit = log
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

type handler func(ctx context.Context, req Request, args []string) Result

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	store    *conversation.Store
	channel  Channel
	prefix   string
	audit    store.AuditLog
	logger   *slog.Logger
	handlers map[string]handler
}

// NewDispatcher creates a dispatcher over the given store and channel.
func NewDispatcher(st *conversation.Store, channel Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		channel: channel,
		prefix:  DefaultPrefix,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "commands")

	d.handlers = map[string]handler{
		"aion":            d.aiOn,
		"aioff":           d.aiOff,
		"groupinfo":       d.groupInfo,
		"setgroupsubject": d.setGroupSubject,
		"sendimage":       d.sendImage,
		"leave":           d.leave,
		"myinfo":          d.myInfo,
		"modlog":          d.modLog,
		"menu":            d.menu,
		"help":            d.menu,
	}
	for _, t := range toggles {
		d.handlers[t.name] = d.toggleHandler(t)
	}
	return d
}

// Prefix returns the configured command prefix.
func (d *Dispatcher) Prefix() string {
	return d.prefix
}

// IsCommand reports whether text would be dispatched as a command.
func (d *Dispatcher) IsCommand(text string) bool {
	return strings.HasPrefix(text, d.prefix)
}

// Parse splits a command into its lowercased name and arguments.
// ok is false when text does not start with the prefix.
func (d *Dispatcher) Parse(text string) (name string, args []string, ok bool) {
	if !d.IsCommand(text) {
		return "", nil, false
	}
	fields := strings.Fields(text[len(d.prefix):])
	if len(fields) == 0 {
		return "", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// TryDispatch runs req.Text as a command. The bool is false when the text is
// not a command; in that case nothing happened and the caller continues.
func (d *Dispatcher) TryDispatch(ctx context.Context, req Request) (Result, bool) {
	name, args, ok := d.Parse(req.Text)
	if !ok {
		return Result{}, false
	}

	logger := d.logger.With("chat_id", req.ChatID, "sender", req.SenderID, "command", name)
	logger.Info("processing command", "args", len(args), "is_group", req.IsGroup, "is_admin", req.SenderIsAdmin)

	if req.IsGroup && !req.SenderIsAdmin && adminOnly[name] {
		logger.Info("rejected admin-only command from non-admin")
		return reply(ReplyAdminOnly), true
	}

	h, found := d.handlers[name]
	if !found {
		return reply(ReplyUnknownCommand), true
	}
	return h(ctx, req, args), true
}

// record writes an admin action to the audit log when one is configured.
func (d *Dispatcher) record(ctx context.Context, req Request, action store.AuditAction, detail map[string]any) {
	if d.audit == nil {
		return
	}
	err := d.audit.AppendAuditLog(ctx, &store.AuditEntry{
		ChatID:  string(req.ChatID),
		ActorID: req.SenderID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		d.logger.Error("failed to record admin action", "error", err, "chat_id", req.ChatID, "action", action)
	}
}
