// ABOUTME: Discord adapter: gateway session, intents and translation of events
// ABOUTME: Feeds messages and member joins to the coordinator, filtered by channel and dedupe

package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/dedupe"
	"github.com/2389/coven-chatops/internal/session"
)

// requestTimeout bounds individual REST calls.
const requestTimeout = 10 * time.Second

// Handler receives translated events. *session.Coordinator satisfies it.
type Handler interface {
	SubmitMessage(ctx context.Context, msg session.Message) bool
	SubmitMembership(ctx context.Context, ev session.MembershipChange) bool
}

// Config holds the Discord settings the adapter needs.
type Config struct {
	Token           string
	AllowedChannels []string
}

// Channel implements session.Channel on top of a discordgo session.
type Channel struct {
	cfg     Config
	session *discordgo.Session
	seen    *dedupe.Filter
	logger  *slog.Logger
}

// New creates a Discord channel. The gateway is not opened until Run.
func New(cfg Config, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Channel{
		cfg:     cfg,
		session: s,
		seen:    dedupe.NewFilter(dedupe.DefaultTTL, dedupe.DefaultCapacity),
		logger:  logger.With("component", "discord"),
	}, nil
}

// Run opens the gateway and delivers events to h until ctx is cancelled.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	// Queued events keep running after ctx ends so shutdown can drain them.
	handleCtx := context.WithoutCancel(ctx)

	removeMsg := c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		c.onMessage(handleCtx, h, m)
	})
	defer removeMsg()
	removeAdd := c.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		c.onMember(handleCtx, h, m.Member, session.MembershipAdd)
	})
	defer removeAdd()
	removeRemove := c.session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		c.onMember(handleCtx, h, m.Member, session.MembershipRemove)
	})
	defer removeRemove()

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	go c.seen.Run(ctx, time.Minute)

	c.logger.Info("discord channel running", "user_id", c.SelfID())

	<-ctx.Done()
	c.logger.Info("shutting down discord channel")
	if err := c.session.Close(); err != nil {
		c.logger.Warn("closing discord gateway", "error", err)
	}
	return nil
}

func (c *Channel) onMessage(ctx context.Context, h Handler, m *discordgo.MessageCreate) {
	msg, ok := translateMessage(m.Message, c.SelfID())
	if !ok {
		return
	}
	if !c.channelAllowed(m.ChannelID) {
		c.logger.Debug("ignoring message from non-allowed channel", "channel", m.ChannelID)
		return
	}
	if c.seen.Duplicate(m.ChannelID, m.ID) {
		return
	}
	h.SubmitMessage(ctx, msg)
}

func (c *Channel) onMember(ctx context.Context, h Handler, member *discordgo.Member, action session.MembershipAction) {
	if member == nil || member.User == nil {
		return
	}
	chatID, ok := c.announceChannel(member.GuildID)
	if !ok {
		c.logger.Debug("guild has no system channel, skipping membership event", "guild", member.GuildID)
		return
	}
	if !c.channelAllowed(chatID) {
		return
	}
	h.SubmitMembership(ctx, session.MembershipChange{
		ChatID:       conversation.ChatID(chatID),
		Participants: []string{member.User.ID},
		Action:       action,
	})
}

// announceChannel returns the channel where a guild's joins are greeted.
func (c *Channel) announceChannel(guildID string) (string, bool) {
	g, err := c.session.State.Guild(guildID)
	if err != nil {
		g, err = c.session.Guild(guildID)
		if err != nil {
			c.logger.Warn("looking up guild", "guild", guildID, "error", err)
			return "", false
		}
	}
	return g.SystemChannelID, g.SystemChannelID != ""
}

func (c *Channel) channelAllowed(channelID string) bool {
	return len(c.cfg.AllowedChannels) == 0 || slices.Contains(c.cfg.AllowedChannels, channelID)
}

// translateMessage converts a Discord message into a session message.
// Messages from selfID and from other bots are dropped.
func translateMessage(m *discordgo.Message, selfID string) (session.Message, bool) {
	if m == nil || m.Author == nil {
		return session.Message{}, false
	}
	if m.Author.ID == selfID || m.Author.Bot {
		return session.Message{}, false
	}
	return session.Message{
		ChatID:   conversation.ChatID(m.ChannelID),
		SenderID: m.Author.ID,
		IsGroup:  m.GuildID != "",
		Text:     m.Content,
		Ref:      m.ID,
	}, true
}
