// ABOUTME: Tests for command recognition, the admin gate and every command handler
// ABOUTME: Uses a fake channel and the in-memory audit store

package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chatops/internal/conversation"
	"github.com/2389/coven-chatops/internal/store"
)

const (
	botID  = "@bot:example.org"
	chatID = conversation.ChatID("!group:example.org")
)

type sentText struct {
	text    string
	replyTo string
}

type fakeChannel struct {
	botAdmin  bool
	adminErr  error
	info      GroupInfo
	infoErr   error
	renameErr error
	leaveErr  error
	imageErr  error

	calls   []string
	renamed string
	texts   []sentText
	images  []string
}

func (f *fakeChannel) SelfID() string { return botID }

func (f *fakeChannel) IsAdministrator(ctx context.Context, chatID conversation.ChatID, participantID string) (bool, error) {
	if f.adminErr != nil {
		return false, f.adminErr
	}
	return participantID == botID && f.botAdmin, nil
}

func (f *fakeChannel) GroupInfo(ctx context.Context, chatID conversation.ChatID) (GroupInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeChannel) RenameGroup(ctx context.Context, chatID conversation.ChatID, name string) error {
	f.calls = append(f.calls, "rename")
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamed = name
	return nil
}

func (f *fakeChannel) LeaveGroup(ctx context.Context, chatID conversation.ChatID) error {
	f.calls = append(f.calls, "leave")
	return f.leaveErr
}

func (f *fakeChannel) SendText(ctx context.Context, chatID conversation.ChatID, text, replyTo string) error {
	f.calls = append(f.calls, "send")
	f.texts = append(f.texts, sentText{text, replyTo})
	return nil
}

func (f *fakeChannel) SendImage(ctx context.Context, chatID conversation.ChatID, url, caption string) error {
	f.calls = append(f.calls, "image")
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images = append(f.images, url+"|"+caption)
	return nil
}

type fixture struct {
	store   *conversation.Store
	channel *fakeChannel
	audit   *store.MockStore
	d       *Dispatcher
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		store:   conversation.NewStore(),
		channel: &fakeChannel{botAdmin: true},
		audit:   store.NewMockStore(),
	}
	opts = append([]Option{WithAuditLog(f.audit)}, opts...)
	f.d = NewDispatcher(f.store, f.channel, opts...)
	return f
}

func groupAdmin(text string) Request {
	return Request{ChatID: chatID, IsGroup: true, SenderID: "admin", SenderIsAdmin: true, Text: text, Ref: "$cmd"}
}

func groupMember(text string) Request {
	return Request{ChatID: chatID, IsGroup: true, SenderID: "member", Text: text, Ref: "$cmd"}
}

func private(text string) Request {
	return Request{ChatID: "dm", SenderID: "alice", Text: text, Ref: "$cmd"}
}

func (f *fixture) dispatch(t *testing.T, req Request) Result {
	t.Helper()
	res, ok := f.d.TryDispatch(context.Background(), req)
	require.True(t, ok, "expected %q to be a command", req.Text)
	return res
}

func TestTryDispatch_NotACommand(t *testing.T) {
	f := newFixture()

	for _, text := range []string{"hello", " !aion", "", "?help"} {
		_, ok := f.d.TryDispatch(context.Background(), groupAdmin(text))
		assert.False(t, ok, text)
	}
	_, exists := f.store.LookupSettings(chatID)
	assert.False(t, exists)
}

func TestTryDispatch_CaseInsensitiveAndWhitespace(t *testing.T) {
	f := newFixture()

	res := f.dispatch(t, groupAdmin("!AntiLink    ON"))
	assert.Equal(t, "🔗 Anti-link enabled. Messages with links will be deleted.", res.Reply)
	assert.True(t, f.store.Settings(chatID).AntiLinkEnabled)
}

func TestTryDispatch_CustomPrefix(t *testing.T) {
	f := newFixture(WithPrefix("bot:"))

	_, ok := f.d.TryDispatch(context.Background(), groupAdmin("!myinfo"))
	assert.False(t, ok)

	res := f.dispatch(t, groupAdmin("bot: myinfo"))
	assert.Equal(t, "My ID is: "+botID, res.Reply)
	assert.Equal(t, "bot:", f.d.Prefix())
}

func TestTryDispatch_UnknownAndEmpty(t *testing.T) {
	f := newFixture()

	assert.Equal(t, ReplyUnknownCommand, f.dispatch(t, groupAdmin("!frobnicate")).Reply)
	assert.Equal(t, ReplyUnknownCommand, f.dispatch(t, groupAdmin("!")).Reply)
	assert.Equal(t, ReplyUnknownCommand, f.dispatch(t, groupMember("!frobnicate")).Reply)
}

func TestTryDispatch_NonAdminRejectedForEveryAdminCommand(t *testing.T) {
	for name := range adminOnly {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			f.store.UpdateSettings(chatID, func(s *conversation.ChatSettings) { s.WelcomeEnabled = true })
			before := f.store.Settings(chatID)

			for _, arg := range []string{"", " on", " off", " New Name"} {
				res := f.dispatch(t, groupMember("!"+name+arg))
				assert.Equal(t, ReplyAdminOnly, res.Reply)
				assert.False(t, res.Silent)
			}

			assert.Equal(t, before, f.store.Settings(chatID))
			assert.Empty(t, f.channel.calls)
			assert.Empty(t, f.audit.Entries())
		})
	}
}

func TestTryDispatch_NonAdminMayUseOpenCommands(t *testing.T) {
	f := newFixture()
	f.channel.info = GroupInfo{Subject: "Book Club", Participants: 7}

	assert.Contains(t, f.dispatch(t, groupMember("!groupinfo")).Reply, "Book Club")
	assert.Equal(t, "My ID is: "+botID, f.dispatch(t, groupMember("!myinfo")).Reply)
	assert.Contains(t, f.dispatch(t, groupMember("!help")).Reply, "Bot Menu")
}

func TestAIToggle_Group(t *testing.T) {
	f := newFixture()

	assert.Equal(t, "🤖 AI chat enabled for this group.", f.dispatch(t, groupAdmin("!aion")).Reply)
	assert.True(t, f.store.Settings(chatID).AIEnabled)
	assert.Equal(t, "AI chat is already enabled.", f.dispatch(t, groupAdmin("!aion")).Reply)

	assert.Equal(t, "🤖 AI chat disabled for this group.", f.dispatch(t, groupAdmin("!aioff")).Reply)
	assert.False(t, f.store.Settings(chatID).AIEnabled)
	assert.Equal(t, "AI chat is already disabled.", f.dispatch(t, groupAdmin("!aioff")).Reply)

	// Only real changes are audited.
	entries := f.audit.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, store.AuditSettingsChanged, entries[0].Action)
	assert.Equal(t, "ai", entries[0].Detail["setting"])
	assert.Equal(t, true, entries[0].Detail["enabled"])
	assert.Equal(t, "admin", entries[0].ActorID)
}

func TestAIToggle_PrivateIsInformativeNoOp(t *testing.T) {
	f := newFixture()

	assert.Equal(t, "AI is always enabled in private chat.", f.dispatch(t, private("!aion")).Reply)
	assert.Equal(t, "AI cannot be disabled in private chat.", f.dispatch(t, private("!aioff")).Reply)
	assert.False(t, f.store.Settings("dm").AIEnabled)
	assert.Empty(t, f.audit.Entries())
}

func TestPolicyToggles(t *testing.T) {
	tests := []struct {
		name  string
		label string
		field func(conversation.ChatSettings) bool
	}{
		{"antilink", "Anti-link", func(s conversation.ChatSettings) bool { return s.AntiLinkEnabled }},
		{"welcome", "Welcome messages", func(s conversation.ChatSettings) bool { return s.WelcomeEnabled }},
		{"antispam", "Anti-spam", func(s conversation.ChatSettings) bool { return s.AntiSpamEnabled }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			res := f.dispatch(t, groupAdmin("!"+tt.name))
			assert.Equal(t, tt.label+" is currently OFF. Use '!"+tt.name+" on/off'.", res.Reply)

			res = f.dispatch(t, groupAdmin("!"+tt.name+" maybe"))
			assert.Equal(t, tt.label+" is currently OFF. Use '!"+tt.name+" on/off'.", res.Reply)

			f.dispatch(t, groupAdmin("!"+tt.name+" on"))
			assert.True(t, tt.field(f.store.Settings(chatID)))

			res = f.dispatch(t, groupAdmin("!"+tt.name+" on"))
			assert.Equal(t, tt.label+" is already ON.", res.Reply)

			res = f.dispatch(t, groupAdmin("!"+tt.name))
			assert.Equal(t, tt.label+" is currently ON. Use '!"+tt.name+" on/off'.", res.Reply)

			f.dispatch(t, groupAdmin("!"+tt.name+" off"))
			assert.False(t, tt.field(f.store.Settings(chatID)))

			res = f.dispatch(t, groupAdmin("!"+tt.name+" off"))
			assert.Equal(t, tt.label+" is already OFF.", res.Reply)

			assert.Len(t, f.audit.Entries(), 2)
		})
	}
}

func TestPolicyToggles_GroupOnly(t *testing.T) {
	f := newFixture()

	for _, name := range []string{"antilink", "welcome", "antispam", "groupinfo", "setgroupsubject"} {
		assert.Equal(t, ReplyGroupOnly, f.dispatch(t, private("!"+name+" on")).Reply, name)
	}
	assert.Equal(t, conversation.ChatSettings{}, f.store.Settings("dm"))
}

func TestGroupInfo(t *testing.T) {
	f := newFixture()
	f.channel.info = GroupInfo{Subject: "Book Club", Participants: 7}

	res := f.dispatch(t, groupAdmin("!groupinfo"))
	assert.Equal(t, "*Group Info:*\n*Subject:* Book Club\n*Participants:* 7", res.Reply)

	f.channel.infoErr = errors.New("gone")
	assert.Equal(t, "Could not fetch group info.", f.dispatch(t, groupAdmin("!groupinfo")).Reply)
}

func TestSetGroupSubject(t *testing.T) {
	f := newFixture()

	res := f.dispatch(t, groupAdmin("!setgroupsubject  Weekend   Plans "))
	assert.Equal(t, "Group subject updated successfully.", res.Reply)
	assert.Equal(t, "Weekend Plans", f.channel.renamed)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditGroupRenamed, entries[0].Action)
	assert.Equal(t, "Weekend Plans", entries[0].Detail["subject"])
}

func TestSetGroupSubject_Failures(t *testing.T) {
	f := newFixture()
	assert.Equal(t, "Please provide a new subject.", f.dispatch(t, groupAdmin("!setgroupsubject")).Reply)

	f.channel.renameErr = errors.New("forbidden")
	assert.Equal(t, "Failed to update group subject.", f.dispatch(t, groupAdmin("!setgroupsubject x")).Reply)

	f.channel.botAdmin = false
	assert.Equal(t, "I need to be an admin to change the group subject.", f.dispatch(t, groupAdmin("!setgroupsubject x")).Reply)

	f.channel.botAdmin = true
	f.channel.adminErr = errors.New("timeout")
	assert.Equal(t, "I need to be an admin to change the group subject.", f.dispatch(t, groupAdmin("!setgroupsubject x")).Reply)

	assert.Empty(t, f.audit.Entries())
}

func TestSendImage(t *testing.T) {
	f := newFixture()

	res := f.dispatch(t, private("!sendimage https://example.com/cat.png a very good cat"))
	assert.True(t, res.Silent)
	assert.Equal(t, []string{"https://example.com/cat.png|a very good cat"}, f.channel.images)

	assert.Equal(t, "Please provide a direct image URL.", f.dispatch(t, private("!sendimage")).Reply)
	for _, bad := range []string{"cat.png", "ftp://example.com/cat.png", "https://", "::nope"} {
		assert.Equal(t, "Please provide a valid http(s) image URL.", f.dispatch(t, private("!sendimage "+bad)).Reply, bad)
	}

	f.channel.imageErr = errors.New("404")
	res = f.dispatch(t, private("!sendimage http://example.com/missing.png"))
	assert.Equal(t, "Failed to send image. Please ensure it is a direct, valid image URL.", res.Reply)
}

func TestLeave_SendsFarewellThenLeaves(t *testing.T) {
	f := newFixture()

	res := f.dispatch(t, groupAdmin("!leave"))
	assert.True(t, res.Silent)
	assert.Equal(t, []string{"send", "leave"}, f.channel.calls)
	assert.Equal(t, []sentText{{FarewellText, "$cmd"}}, f.channel.texts)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditGroupLeft, entries[0].Action)
}

func TestLeave_FailureIsLoggedNotRetried(t *testing.T) {
	f := newFixture()
	f.channel.leaveErr = errors.New("network")

	res := f.dispatch(t, groupAdmin("!leave"))
	assert.True(t, res.Silent)
	assert.Equal(t, []string{"send", "leave"}, f.channel.calls)
	assert.Empty(t, f.audit.Entries())
}

func TestLeave_PrivateChat(t *testing.T) {
	f := newFixture()
	assert.Equal(t, "I can only leave groups.", f.dispatch(t, private("!leave")).Reply)
	assert.Empty(t, f.channel.calls)
}

func TestMenu_ShowsLiveState(t *testing.T) {
	f := newFixture()
	f.dispatch(t, groupAdmin("!antispam on"))

	res := f.dispatch(t, groupAdmin("!MENU"))
	assert.Contains(t, res.Reply, "Group AI: `OFF`")
	assert.Contains(t, res.Reply, "Anti-Spam: `ON`")
	assert.Contains(t, res.Reply, "Anti-Link: `OFF`")

	assert.Equal(t, res.Reply, f.dispatch(t, groupAdmin("!help")).Reply)

	dm := f.dispatch(t, private("!help")).Reply
	assert.NotContains(t, dm, "Group AI:")
	assert.True(t, strings.Contains(dm, "!aion"))
}

func TestModLog(t *testing.T) {
	f := newFixture()
	f.dispatch(t, groupAdmin("!antilink on"))
	f.dispatch(t, groupAdmin("!setgroupsubject Renamed"))
	require.NoError(t, f.audit.AppendAuditLog(context.Background(), &store.AuditEntry{
		ChatID: "elsewhere", ActorID: "x", Action: store.AuditGroupLeft,
	}))

	res := f.dispatch(t, groupAdmin("!modlog"))
	assert.True(t, strings.HasPrefix(res.Reply, "*Recent moderation events:*"))
	assert.Contains(t, res.Reply, "group_renamed by admin (subject=Renamed)")
	assert.Contains(t, res.Reply, "settings_changed by admin (setting=antilink, enabled=true)")
	assert.NotContains(t, res.Reply, "group_left")
}

func TestModLog_EmptyAndDisabled(t *testing.T) {
	f := newFixture()
	assert.Equal(t, "No moderation events recorded for this chat.", f.dispatch(t, groupAdmin("!modlog")).Reply)

	d := NewDispatcher(conversation.NewStore(), &fakeChannel{})
	res, ok := d.TryDispatch(context.Background(), groupAdmin("!modlog"))
	require.True(t, ok)
	assert.Equal(t, "The audit log is disabled.", res.Reply)
}

func TestAuditFailureDoesNotBlockChange(t *testing.T) {
	f := newFixture()
	f.audit.AppendErr = errors.New("disk full")

	res := f.dispatch(t, groupAdmin("!welcome on"))
	assert.Equal(t, "👋 Welcome messages enabled.", res.Reply)
	assert.True(t, f.store.Settings(chatID).WelcomeEnabled)
}

func TestIsAdminOnly(t *testing.T) {
	assert.True(t, IsAdminOnly("AION"))
	assert.True(t, IsAdminOnly("modlog"))
	assert.False(t, IsAdminOnly("help"))
	assert.False(t, IsAdminOnly("sendimage"))
}
