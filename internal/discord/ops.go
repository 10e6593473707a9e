// ABOUTME: Outbound Discord operations backing session.Channel
// ABOUTME: Messages, embeds, deletion, typing, permissions and guild management

package discord

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/coven-chatops/internal/commands"
	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/session"
)

// maxMessageLen is Discord's limit on message content.
const maxMessageLen = 2000

// adminPermissions grant the bot's admin-only commands.
const adminPermissions int64 = discordgo.PermissionAdministrator | discordgo.PermissionManageServer

func (c *Channel) SelfID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Channel) Mention(participantID string) string {
	return "<@" + participantID + ">"
}

// SendText sends text, split into several messages when longer than Discord
// allows. Only the first part references replyTo.
func (c *Channel) SendText(ctx context.Context, chatID conversation.ChatID, text, replyTo string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	for i, part := range splitMessage(text, maxMessageLen) {
		send := &discordgo.MessageSend{Content: part}
		if i == 0 && replyTo != "" {
			send.Reference = &discordgo.MessageReference{MessageID: replyTo, ChannelID: string(chatID)}
		}
		if _, err := c.session.ChannelMessageSendComplex(string(chatID), send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("sending message: %w", err)
		}
	}
	return nil
}

// SendImage posts the image as an embed; Discord fetches it from url.
func (c *Channel) SendImage(ctx context.Context, chatID conversation.ChatID, url, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := c.session.ChannelMessageSendComplex(string(chatID), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{imageEmbed(url, caption)},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("sending image: %w", err)
	}
	return nil
}

func (c *Channel) DeleteMessage(ctx context.Context, chatID conversation.ChatID, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := c.session.ChannelMessageDelete(string(chatID), ref, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// SetPresence triggers the typing indicator. Discord clears it on its own
// after a few seconds or when a message is sent, so paused is a no-op.
func (c *Channel) SetPresence(ctx context.Context, chatID conversation.ChatID, p session.Presence) error {
	if p != session.PresenceComposing {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return c.session.ChannelTyping(string(chatID), discordgo.WithContext(ctx))
}

// IsAdministrator reports whether the participant can manage the guild
// owning the channel.
func (c *Channel) IsAdministrator(ctx context.Context, chatID conversation.ChatID, participantID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	perms, err := c.session.UserChannelPermissions(participantID, string(chatID), discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("reading permissions: %w", err)
	}
	return isAdmin(perms), nil
}

func (c *Channel) GroupInfo(ctx context.Context, chatID conversation.ChatID) (commands.GroupInfo, error) {
	g, err := c.guildFor(ctx, chatID)
	if err != nil {
		return commands.GroupInfo{}, err
	}
	members := g.MemberCount
	if members == 0 {
		members = g.ApproximateMemberCount
	}
	return commands.GroupInfo{Subject: g.Name, Participants: members}, nil
}

func (c *Channel) RenameGroup(ctx context.Context, chatID conversation.ChatID, name string) error {
	g, err := c.guildFor(ctx, chatID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if _, err := c.session.GuildEdit(g.ID, &discordgo.GuildParams{Name: name}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("renaming guild: %w", err)
	}
	return nil
}

func (c *Channel) LeaveGroup(ctx context.Context, chatID conversation.ChatID) error {
	g, err := c.guildFor(ctx, chatID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := c.session.GuildLeave(g.ID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("leaving guild: %w", err)
	}
	return nil
}

// guildFor resolves the guild owning a channel, preferring the gateway state.
func (c *Channel) guildFor(ctx context.Context, chatID conversation.ChatID) (*discordgo.Guild, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	ch, err := c.session.State.Channel(string(chatID))
	if err != nil {
		ch, err = c.session.Channel(string(chatID), discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("looking up channel: %w", err)
		}
	}
	if ch.GuildID == "" {
		return nil, fmt.Errorf("channel %s is not in a guild", chatID)
	}

	if g, err := c.session.State.Guild(ch.GuildID); err == nil {
		return g, nil
	}
	g, err := c.session.Guild(ch.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("looking up guild: %w", err)
	}
	return g, nil
}

func isAdmin(perms int64) bool {
	return perms&adminPermissions != 0
}

func imageEmbed(url, caption string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: caption,
		Image:       &discordgo.MessageEmbedImage{URL: url},
	}
}

// splitMessage cuts text into parts of at most limit runes, preferring to
// break after a newline.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i]) + 1
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
