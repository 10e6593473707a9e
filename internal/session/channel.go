// ABOUTME: Channel contract and inbound event types shared by the chat adapters
// ABOUTME: The coordinator sees Matrix and Discord only through these

package session

import (
	"context"

	"github.com/2389/coven-chatops/internal/commands"
	"github.com/2389/coven-chatops/internal/conversation"
)

// Presence is a typing indicator state.
type Presence string

const (
	PresenceComposing Presence = "composing"
	PresencePaused    Presence = "paused"
)

// Channel is everything the core asks of a chat network.
type Channel interface {
	commands.Channel

	DeleteMessage(ctx context.Context, chatID conversation.ChatID, ref string) error
	SetPresence(ctx context.Context, chatID conversation.ChatID, p Presence) error
	// Mention renders a participant the way the network highlights users.
	Mention(participantID string) string
}

// Message is an inbound chat message.
type Message struct {
	ChatID   conversation.ChatID
	SenderID string
	IsGroup  bool
	Text     string
	Ref      string // network event/message ID, used for replies and deletion
}

// MembershipAction is what happened to the participants of a group.
type MembershipAction string

const (
	MembershipAdd    MembershipAction = "add"
	MembershipRemove MembershipAction = "remove"
)

// MembershipChange is an inbound group membership event.
type MembershipChange struct {
	ChatID       conversation.ChatID
	Participants []string
	Action       MembershipAction
}
