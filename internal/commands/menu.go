// ABOUTME: Help menu and modlog commands
// ABOUTME: The menu shows live setting states; modlog lists recent audit entries

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/coven-chatops/internal/store"
)

// modlogLimit is how many entries the modlog command shows.
const modlogLimit = 5

func (d *Dispatcher) menu(_ context.Context, req Request, _ []string) Result {
	p := d.prefix
	s := d.store.Settings(req.ChatID)

	var b strings.Builder
	b.WriteString("*🤖 Bot Menu*\n\n")
	fmt.Fprintf(&b, "Use commands starting with `%s`\n\n", p)

	b.WriteString("*AI Chat:*\n")
	b.WriteString("💬 Responds to all messages in private chat.\n")
	if req.IsGroup {
		fmt.Fprintf(&b, "   - Group AI: `%s`\n", onOff(s.AIEnabled))
		fmt.Fprintf(&b, "   - %saion - Enable AI in this group (Admin Only)\n", p)
		fmt.Fprintf(&b, "   - %saioff - Disable AI in this group (Admin Only)\n\n", p)
	} else {
		fmt.Fprintf(&b, "   (Use `%saion` / `%saioff` in groups to control AI there)\n\n", p, p)
	}

	b.WriteString("*Group Management (Admin Only):*\n")
	fmt.Fprintf(&b, "🔗 Anti-Link: `%s` (`%santilink on/off`)\n", onOff(s.AntiLinkEnabled), p)
	fmt.Fprintf(&b, "👋 Welcome: `%s` (`%swelcome on/off`)\n", onOff(s.WelcomeEnabled), p)
	fmt.Fprintf(&b, "🛡️ Anti-Spam: `%s` (`%santispam on/off`)\n", onOff(s.AntiSpamEnabled), p)
	fmt.Fprintf(&b, "📜 %smodlog - Show recent moderation events\n\n", p)

	b.WriteString("*Other Commands:*\n")
	fmt.Fprintf(&b, "   - %sgroupinfo - Show group details (Groups Only)\n", p)
	fmt.Fprintf(&b, "   - %ssetgroupsubject <subject> - Change group name (Admin Only)\n", p)
	fmt.Fprintf(&b, "   - %ssendimage <url> [caption] - Send image from URL\n", p)
	fmt.Fprintf(&b, "   - %sleave - Make the bot leave the current group (Admin Only)\n", p)
	fmt.Fprintf(&b, "   - %smyinfo - Show my ID\n", p)
	fmt.Fprintf(&b, "   - %smenu / %shelp - Show this menu", p, p)

	return reply(b.String())
}

func (d *Dispatcher) modLog(ctx context.Context, req Request, _ []string) Result {
	if d.audit == nil {
		return reply("The audit log is disabled.")
	}

	chat := string(req.ChatID)
	entries, err := d.audit.ListAuditLog(ctx, store.AuditFilter{ChatID: &chat, Limit: modlogLimit})
	if err != nil {
		d.logger.Error("failed to list audit log", "error", err, "chat_id", req.ChatID)
		return reply("Could not read the audit log.")
	}
	if len(entries) == 0 {
		return reply("No moderation events recorded for this chat.")
	}

	var b strings.Builder
	b.WriteString("*Recent moderation events:*")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n- %s %s by %s", e.Timestamp.UTC().Format("2006-01-02 15:04"), e.Action, e.ActorID)
		if summary := detailSummary(e.Detail); summary != "" {
			fmt.Fprintf(&b, " (%s)", summary)
		}
	}
	return reply(b.String())
}

// detailSummary renders the interesting detail keys in a fixed order.
func detailSummary(detail map[string]any) string {
	var parts []string
	for _, key := range []string{"policy", "setting", "enabled", "subject", "reason"} {
		if v, ok := detail[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, ", ")
}
