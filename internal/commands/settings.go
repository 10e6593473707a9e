// ABOUTME: Settings commands: aion, aioff and the on/off policy toggles
// ABOUTME: Every change goes through Store.UpdateSettings and is audited

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/store"
)

// toggle describes an on/off group setting.
type toggle struct {
	name   string
	label  string
	onMsg  string
	offMsg string
	field  func(*conversation.ChatSettings) *bool
}

var toggles = []toggle{
	{
		name:   "antilink",
		label:  "Anti-link",
		onMsg:  "🔗 Anti-link enabled. Messages with links will be deleted.",
		offMsg: "🔗 Anti-link disabled.",
		field:  func(s *conversation.ChatSettings) *bool { return &s.AntiLinkEnabled },
	},
	{
		name:   "welcome",
		label:  "Welcome messages",
		onMsg:  "👋 Welcome messages enabled.",
		offMsg: "👋 Welcome messages disabled.",
		field:  func(s *conversation.ChatSettings) *bool { return &s.WelcomeEnabled },
	},
	{
		name:   "antispam",
		label:  "Anti-spam",
		onMsg:  "🛡️ Anti-spam enabled. Overlong messages will be deleted.",
		offMsg: "🛡️ Anti-spam disabled.",
		field:  func(s *conversation.ChatSettings) *bool { return &s.AntiSpamEnabled },
	},
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// set applies want to the field and reports whether it changed.
func (d *Dispatcher) set(req Request, setting string, field func(*conversation.ChatSettings) *bool, want bool) bool {
	changed := false
	after := d.store.UpdateSettings(req.ChatID, func(s *conversation.ChatSettings) {
		p := field(s)
		if *p != want {
			*p = want
			changed = true
		}
	})
	if changed {
		d.logger.Info("chat settings updated",
			"chat_id", req.ChatID,
			"setting", setting,
			"ai", after.AIEnabled,
			"antilink", after.AntiLinkEnabled,
			"welcome", after.WelcomeEnabled,
			"antispam", after.AntiSpamEnabled,
		)
	}
	return changed
}

func aiField(s *conversation.ChatSettings) *bool { return &s.AIEnabled }

func (d *Dispatcher) aiOn(ctx context.Context, req Request, _ []string) Result {
	if !req.IsGroup {
		return reply("AI is always enabled in private chat.")
	}
	if !d.set(req, "ai", aiField, true) {
		return reply("AI chat is already enabled.")
	}
	d.record(ctx, req, store.AuditSettingsChanged, map[string]any{"setting": "ai", "enabled": true})
	return reply("🤖 AI chat enabled for this group.")
}

func (d *Dispatcher) aiOff(ctx context.Context, req Request, _ []string) Result {
	if !req.IsGroup {
		return reply("AI cannot be disabled in private chat.")
	}
	if !d.set(req, "ai", aiField, false) {
		return reply("AI chat is already disabled.")
	}
	d.record(ctx, req, store.AuditSettingsChanged, map[string]any{"setting": "ai", "enabled": false})
	return reply("🤖 AI chat disabled for this group.")
}

func (d *Dispatcher) toggleHandler(t toggle) handler {
	return func(ctx context.Context, req Request, args []string) Result {
		if !req.IsGroup {
			return reply(ReplyGroupOnly)
		}

		var want bool
		switch arg := firstArg(args); arg {
		case "on":
			want = true
		case "off":
			want = false
		default:
			current := *t.field(ptr(d.store.Settings(req.ChatID)))
			return reply(fmt.Sprintf("%s is currently %s. Use '%s%s on/off'.", t.label, onOff(current), d.prefix, t.name))
		}

		if !d.set(req, t.name, t.field, want) {
			return reply(fmt.Sprintf("%s is already %s.", t.label, onOff(want)))
		}
		d.record(ctx, req, store.AuditSettingsChanged, map[string]any{"setting": t.name, "enabled": want})
		if want {
			return reply(t.onMsg)
		}
		return reply(t.offMsg)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.ToLower(args[0])
}

func ptr[T any](v T) *T { return &v }
