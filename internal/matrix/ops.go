// ABOUTME: session.Channel operations for Matrix rooms
// ABOUTME: Sending, redaction, typing, power-level checks, room name and leave

package matrix

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-chatops/internal/commands"
	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/session"
)

func roomID(chatID conversation.ChatID) id.RoomID {
	return id.RoomID(chatID)
}

// SelfID returns the bot's Matrix user ID.
func (c *Channel) SelfID() string {
	return c.client.UserID.String()
}

// Mention renders a user as @localpart.
func (c *Channel) Mention(participantID string) string {
	localpart, _, err := id.UserID(participantID).Parse()
	if err != nil || localpart == "" {
		return participantID
	}
	return "@" + localpart
}

// SendText sends text as a message, rendered from Markdown, optionally as a reply.
func (c *Channel) SendText(ctx context.Context, chatID conversation.ChatID, text, replyTo string) error {
	content := textContent(text)
	if replyTo != "" {
		content.RelatesTo = (&event.RelatesTo{}).SetReplyTo(id.EventID(replyTo))
	}

	ctx, cancel := context.WithTimeout(ctx, 3*networkTimeout)
	defer cancel()
	if _, err := c.client.SendMessageEvent(ctx, roomID(chatID), event.EventMessage, content); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendImage downloads url, uploads it to the media repository and posts it.
func (c *Channel) SendImage(ctx context.Context, chatID conversation.ChatID, url, caption string) error {
	img, err := fetchImage(ctx, c.http, url)
	if err != nil {
		return err
	}

	upCtx, cancel := context.WithTimeout(ctx, 3*networkTimeout)
	defer cancel()
	up, err := c.client.UploadBytesWithName(upCtx, img.data, img.mimeType, img.fileName)
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}

	body := caption
	if body == "" {
		body = img.fileName
	}
	content := &event.MessageEventContent{
		MsgType:  event.MsgImage,
		Body:     body,
		FileName: img.fileName,
		URL:      up.ContentURI.CUString(),
		Info: &event.FileInfo{
			MimeType: img.mimeType,
			Size:     len(img.data),
		},
	}
	if _, err := c.client.SendMessageEvent(upCtx, roomID(chatID), event.EventMessage, content); err != nil {
		return fmt.Errorf("sending image: %w", err)
	}
	return nil
}

// DeleteMessage redacts the event ref.
func (c *Channel) DeleteMessage(ctx context.Context, chatID conversation.ChatID, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.client.RedactEvent(ctx, roomID(chatID), id.EventID(ref)); err != nil {
		return fmt.Errorf("redacting event: %w", err)
	}
	return nil
}

// SetPresence maps composing/paused to the typing indicator.
func (c *Channel) SetPresence(ctx context.Context, chatID conversation.ChatID, p session.Presence) error {
	typing := p == session.PresenceComposing
	var timeout = typingTimeout
	if !typing {
		timeout = 0
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.client.UserTyping(ctx, roomID(chatID), typing, timeout); err != nil {
		return fmt.Errorf("setting typing: %w", err)
	}
	return nil
}

// IsAdministrator compares the participant's power level with the threshold.
func (c *Channel) IsAdministrator(ctx context.Context, chatID conversation.ChatID, participantID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	var pl event.PowerLevelsEventContent
	if err := c.client.StateEvent(ctx, roomID(chatID), event.StatePowerLevels, "", &pl); err != nil {
		return false, fmt.Errorf("fetching power levels: %w", err)
	}
	return pl.GetUserLevel(id.UserID(participantID)) >= c.cfg.AdminPowerLevel, nil
}

// GroupInfo reports the room name and joined member count.
func (c *Channel) GroupInfo(ctx context.Context, chatID conversation.ChatID) (commands.GroupInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	members, err := c.client.JoinedMembers(ctx, roomID(chatID))
	if err != nil {
		return commands.GroupInfo{}, fmt.Errorf("fetching members: %w", err)
	}

	var name event.RoomNameEventContent
	if err := c.client.StateEvent(ctx, roomID(chatID), event.StateRoomName, "", &name); err != nil {
		c.logger.Debug("room has no name", "room", chatID, "error", err)
	}
	subject := name.Name
	if subject == "" {
		subject = string(chatID)
	}
	return commands.GroupInfo{Subject: subject, Participants: len(members.Joined)}, nil
}

// RenameGroup sets the room name.
func (c *Channel) RenameGroup(ctx context.Context, chatID conversation.ChatID, name string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.client.SendStateEvent(ctx, roomID(chatID), event.StateRoomName, "", &event.RoomNameEventContent{Name: name}); err != nil {
		return fmt.Errorf("setting room name: %w", err)
	}
	return nil
}

// LeaveGroup leaves the room.
func (c *Channel) LeaveGroup(ctx context.Context, chatID conversation.ChatID) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.client.LeaveRoom(ctx, roomID(chatID)); err != nil {
		return fmt.Errorf("leaving room: %w", err)
	}
	return nil
}

// isGroup treats rooms with more than two joined members as groups.
func (c *Channel) isGroup(ctx context.Context, room id.RoomID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	members, err := c.client.JoinedMembers(ctx, room)
	if err != nil {
		return false, err
	}
	return len(members.Joined) > 2, nil
}
