// ABOUTME: Matrix adapter: login, sync loop and translation of room events
// ABOUTME: Feeds messages and joins to the coordinator, filtered by room and dedupe

package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/dedupe"
	"github.com/2389/coven-chatops/internal/session"
)

// networkTimeout bounds individual Matrix API calls.
const networkTimeout = 10 * time.Second

// typingTimeout is how long a composing indicator lasts if never cleared.
const typingTimeout = 30 * time.Second

// Handler receives translated events. *session.Coordinator satisfies it.
type Handler interface {
	SubmitMessage(ctx context.Context, msg session.Message) bool
	SubmitMembership(ctx context.Context, ev session.MembershipChange) bool
}

// Config holds the Matrix settings the adapter needs.
type Config struct {
	Homeserver      string
	Username        string
	Password        string
	RecoveryKey     string
	AllowedRooms    []string
	AdminPowerLevel int
	AutoJoin        bool
	DataDir         string
}

// Channel implements session.Channel on top of a mautrix client.
type Channel struct {
	cfg    Config
	client *mautrix.Client
	http   *http.Client
	seen   *dedupe.Filter
	crypto *CryptoManager
	logger *slog.Logger

	startedAt time.Time
}

// New creates an unauthenticated Matrix channel.
func New(cfg Config, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AdminPowerLevel <= 0 {
		cfg.AdminPowerLevel = 50
	}

	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Channel{
		cfg:    cfg,
		client: client,
		http:   &http.Client{Timeout: 30 * time.Second},
		seen:   dedupe.NewFilter(dedupe.DefaultTTL, dedupe.DefaultCapacity),
		logger: logger.With("component", "matrix"),
	}, nil
}

// Login authenticates with a password and, when a recovery key is set,
// enables end-to-end encryption.
func (c *Channel) Login(ctx context.Context) error {
	resp, err := c.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: c.cfg.Username,
		},
		Password:                 c.cfg.Password,
		InitialDeviceDisplayName: "coven-chatops",
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("password login: %w", err)
	}
	c.logger.Info("logged in", "user_id", resp.UserID, "device_id", resp.DeviceID)

	if c.cfg.RecoveryKey != "" {
		c.crypto, err = SetupCrypto(ctx, c.client, c.cfg.RecoveryKey, c.cfg.DataDir, c.logger)
		if err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
	} else {
		c.logger.Info("encryption disabled (no recovery key)")
	}
	return nil
}

// Close releases crypto resources.
func (c *Channel) Close() error {
	if c.crypto != nil {
		return c.crypto.Close()
	}
	return nil
}

// Run syncs until ctx is cancelled, passing events to h.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	syncer, ok := c.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", c.client.Syncer)
	}

	// Queued events keep running after ctx ends so shutdown can drain them.
	handleCtx := context.WithoutCancel(ctx)

	c.startedAt = time.Now()
	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		c.onMessage(handleCtx, h, evt)
	})
	syncer.OnEventType(event.StateMember, func(_ context.Context, evt *event.Event) {
		c.onMember(handleCtx, h, evt)
	})

	go c.seen.Run(ctx, time.Minute)

	c.logger.Info("matrix channel running", "homeserver", c.cfg.Homeserver, "user_id", c.client.UserID)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- c.client.SyncWithContext(ctx)
	}()

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down matrix channel")
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (c *Channel) onMessage(ctx context.Context, h Handler, evt *event.Event) {
	if !c.accept(evt) {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	isGroup, err := c.isGroup(ctx, evt.RoomID)
	if err != nil {
		// A group read as private would skip moderation and the AI switch.
		c.logger.Warn("could not count room members, treating as group", "room", evt.RoomID, "error", err)
		isGroup = true
	}

	h.SubmitMessage(ctx, session.Message{
		ChatID:   conversation.ChatID(evt.RoomID),
		SenderID: evt.Sender.String(),
		IsGroup:  isGroup,
		Text:     content.Body,
		Ref:      evt.ID.String(),
	})
}

func (c *Channel) onMember(ctx context.Context, h Handler, evt *event.Event) {
	content, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok {
		return
	}
	target := id.UserID(evt.GetStateKey())

	if content.Membership == event.MembershipInvite && target == c.client.UserID {
		c.onInvite(ctx, evt)
		return
	}

	if !c.accept(evt) {
		return
	}
	action, ok := membershipAction(content.Membership, previousMembership(evt))
	if !ok {
		return
	}
	h.SubmitMembership(ctx, session.MembershipChange{
		ChatID:       conversation.ChatID(evt.RoomID),
		Participants: []string{target.String()},
		Action:       action,
	})
}

func (c *Channel) onInvite(ctx context.Context, evt *event.Event) {
	if !c.cfg.AutoJoin || !c.roomAllowed(evt.RoomID.String()) {
		c.logger.Info("ignoring invite", "room", evt.RoomID, "inviter", evt.Sender)
		return
	}
	if c.seen.Duplicate(evt.RoomID.String(), evt.ID.String()) {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.client.JoinRoomByID(callCtx, evt.RoomID); err != nil {
		c.logger.Error("failed to join room", "room", evt.RoomID, "error", err)
		return
	}
	c.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}

// accept applies the filters shared by all inbound events.
func (c *Channel) accept(evt *event.Event) bool {
	if evt.Sender == c.client.UserID {
		return false
	}
	if time.UnixMilli(evt.Timestamp).Before(c.startedAt) {
		return false
	}
	if !c.roomAllowed(evt.RoomID.String()) {
		c.logger.Debug("ignoring event from non-allowed room", "room", evt.RoomID)
		return false
	}
	return !c.seen.Duplicate(evt.RoomID.String(), evt.ID.String())
}

func (c *Channel) roomAllowed(roomID string) bool {
	return len(c.cfg.AllowedRooms) == 0 || slices.Contains(c.cfg.AllowedRooms, roomID)
}

// previousMembership reads the prior membership from unsigned data, if any.
func previousMembership(evt *event.Event) event.Membership {
	if evt.Unsigned.PrevContent == nil {
		return ""
	}
	if m, ok := evt.Unsigned.PrevContent.Raw["membership"].(string); ok {
		return event.Membership(m)
	}
	return ""
}

// membershipAction maps a membership transition to a session action.
// Profile updates (join after join) are not membership changes.
func membershipAction(now, before event.Membership) (session.MembershipAction, bool) {
	switch {
	case now == event.MembershipJoin && before != event.MembershipJoin:
		return session.MembershipAdd, true
	case (now == event.MembershipLeave || now == event.MembershipBan) && before == event.MembershipJoin:
		return session.MembershipRemove, true
	default:
		return "", false
	}
}
