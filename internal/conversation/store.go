// ABOUTME: In-memory per-chat settings and rolling conversation history
// ABOUTME: Single owner of both tables; callers only ever see value copies

package conversation

import (
	"sync"
)

// DefaultWindow is the number of messages kept per chat when no window is configured.
const DefaultWindow = 10

// ChatID identifies a conversation endpoint (a room, a channel, a DM).
type ChatID string

// ChatSettings holds the per-chat toggles. The zero value is the default.
type ChatSettings struct {
	AIEnabled       bool
	AntiLinkEnabled bool
	WelcomeEnabled  bool
	AntiSpamEnabled bool
}

// Store owns settings and history for every chat the process has seen.
// It is safe for concurrent use; ordering of operations on a single chat is
// the caller's responsibility (see session.Lanes).
type Store struct {
	mu           sync.Mutex
	settings     map[ChatID]*ChatSettings
	histories    map[ChatID][]Message
	window       int
	systemPrompt string
}

// Option configures a Store.
type Option func(*Store)

// WithWindow sets the maximum number of retained messages per chat.
// Values below 2 are ignored since a window must hold a user/assistant pair.
func WithWindow(n int) Option {
	return func(s *Store) {
		if n >= 2 {
			s.window = n
		}
	}
}

// WithSystemPrompt seeds every new history with a system message.
func WithSystemPrompt(prompt string) Option {
	return func(s *Store) {
		s.systemPrompt = prompt
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		settings:  make(map[ChatID]*ChatSettings),
		histories: make(map[ChatID][]Message),
		window:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Window returns the configured history window.
func (s *Store) Window() int {
	return s.window
}

// Settings returns the chat's settings, creating defaults on first call.
func (s *Store) Settings(chatID ChatID) ChatSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.settingsLocked(chatID)
}

// LookupSettings returns the chat's settings without creating them.
func (s *Store) LookupSettings(chatID ChatID) (ChatSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.settings[chatID]
	if !ok {
		return ChatSettings{}, false
	}
	return *cs, true
}

// UpdateSettings applies fn to the chat's settings and returns the result.
func (s *Store) UpdateSettings(chatID ChatID, fn func(*ChatSettings)) ChatSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs := s.settingsLocked(chatID)
	fn(cs)
	return *cs
}

func (s *Store) settingsLocked(chatID ChatID) *ChatSettings {
	cs, ok := s.settings[chatID]
	if !ok {
		cs = &ChatSettings{}
		s.settings[chatID] = cs
	}
	return cs
}

// History returns a copy of the chat's history, creating it on first call.
func (s *Store) History(chatID ChatID) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.historyLocked(chatID))
}

// AppendAndTrim appends msg, re-applies the window and role ordering, stores
// the result and returns a copy of it. Entries falling out of the window are
// discarded.
func (s *Store) AppendAndTrim(chatID ChatID, msg Message) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := appendMessage(s.historyLocked(chatID), msg)
	h = trim(h, s.window)
	s.histories[chatID] = h
	return clone(h)
}

func (s *Store) historyLocked(chatID ChatID) []Message {
	h, ok := s.histories[chatID]
	if !ok {
		h = []Message{}
		if s.systemPrompt != "" {
			h = append(h, Message{Role: RoleSystem, Content: s.systemPrompt})
		}
		s.histories[chatID] = h
	}
	return h
}

func clone(h []Message) []Message {
	out := make([]Message, len(h))
	copy(out, h)
	return out
}
