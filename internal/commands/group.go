// ABOUTME: Group and utility commands: groupinfo, setgroupsubject, sendimage, leave, myinfo
// ABOUTME: Channel failures become reply text; post-send failures are logged only

package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/2389/coven-chatops/internal/store"
)

// FarewellText is sent before the bot leaves a group.
const FarewellText = "Okay, leaving this group."

func (d *Dispatcher) groupInfo(ctx context.Context, req Request, _ []string) Result {
	if !req.IsGroup {
		return reply(ReplyGroupOnly)
	}
	info, err := d.channel.GroupInfo(ctx, req.ChatID)
	if err != nil {
		d.logger.Error("failed to fetch group info", "error", err, "chat_id", req.ChatID)
		return reply("Could not fetch group info.")
	}
	return reply(fmt.Sprintf("*Group Info:*\n*Subject:* %s\n*Participants:* %d", info.Subject, info.Participants))
}

func (d *Dispatcher) setGroupSubject(ctx context.Context, req Request, args []string) Result {
	if !req.IsGroup {
		return reply(ReplyGroupOnly)
	}

	botIsAdmin, err := d.channel.IsAdministrator(ctx, req.ChatID, d.channel.SelfID())
	if err != nil {
		d.logger.Warn("administrator query failed, assuming non-admin", "error", err, "chat_id", req.ChatID)
	}
	if !botIsAdmin {
		return reply("I need to be an admin to change the group subject.")
	}

	subject := strings.Join(args, " ")
	if subject == "" {
		return reply("Please provide a new subject.")
	}

	if err := d.channel.RenameGroup(ctx, req.ChatID, subject); err != nil {
		d.logger.Error("failed to update group subject", "error", err, "chat_id", req.ChatID)
		return reply("Failed to update group subject.")
	}

	d.logger.Info("group subject updated", "chat_id", req.ChatID, "subject", subject)
	d.record(ctx, req, store.AuditGroupRenamed, map[string]any{"subject": subject})
	return reply("Group subject updated successfully.")
}

func (d *Dispatcher) sendImage(ctx context.Context, req Request, args []string) Result {
	if len(args) == 0 {
		return reply("Please provide a direct image URL.")
	}
	if !validImageURL(args[0]) {
		return reply("Please provide a valid http(s) image URL.")
	}

	caption := strings.Join(args[1:], " ")
	if err := d.channel.SendImage(ctx, req.ChatID, args[0], caption); err != nil {
		d.logger.Error("failed to send image", "error", err, "chat_id", req.ChatID, "url", args[0])
		return reply("Failed to send image. Please ensure it is a direct, valid image URL.")
	}
	return silent
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// leave says goodbye first because nothing can be sent once the bot is gone.
func (d *Dispatcher) leave(ctx context.Context, req Request, _ []string) Result {
	if !req.IsGroup {
		return reply("I can only leave groups.")
	}

	if err := d.channel.SendText(ctx, req.ChatID, FarewellText, req.Ref); err != nil {
		d.logger.Warn("failed to send farewell", "error", err, "chat_id", req.ChatID)
	}

	if err := d.channel.LeaveGroup(ctx, req.ChatID); err != nil {
		d.logger.Error("failed to leave group", "error", err, "chat_id", req.ChatID)
		return silent
	}

	d.logger.Info("left group", "chat_id", req.ChatID)
	d.record(ctx, req, store.AuditGroupLeft, nil)
	return silent
}

func (d *Dispatcher) myInfo(_ context.Context, _ Request, _ []string) Result {
	return reply("My ID is: " + d.channel.SelfID())
}
