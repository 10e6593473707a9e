// ABOUTME: Message roles, window trimming and the AI request view of a history
// ABOUTME: Keeps the system message pinned and the rest alternating from a user turn

package conversation

// Role is the author of a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry of a conversation history.
type Message struct {
	Role    Role
	Content string
}

// Request is what gets sent to a completion provider.
type Request struct {
	System   string
	Messages []Message
}

// appendMessage adds msg to h. A system message replaces (or installs) the
// entry at index 0. A message with the same role as the current tail is merged
// into it so roles keep alternating.
func appendMessage(h []Message, msg Message) []Message {
	out := clone(h)

	if msg.Role == RoleSystem {
		if len(out) > 0 && out[0].Role == RoleSystem {
			out[0] = msg
			return out
		}
		return append([]Message{msg}, out...)
	}

	if n := len(out); n > 0 && out[n-1].Role == msg.Role {
		out[n-1].Content = out[n-1].Content + "\n\n" + msg.Content
		return out
	}
	return append(out, msg)
}

// trim keeps at most window entries. A leading system message always survives
// and counts towards the window. After cutting, entries are dropped from the
// front of the non-system part until it starts with a user message.
func trim(h []Message, window int) []Message {
	var system *Message
	rest := h
	if len(h) > 0 && h[0].Role == RoleSystem {
		system = &h[0]
		rest = h[1:]
	}

	keep := window
	if system != nil {
		keep--
	}
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}
	for len(rest) > 0 && rest[0].Role != RoleUser {
		rest = rest[1:]
	}

	out := make([]Message, 0, len(rest)+1)
	if system != nil {
		out = append(out, *system)
	}
	return append(out, rest...)
}

// BuildRequest derives the provider request from a history. It returns false
// when there is nothing a provider would accept: no user message at all, or a
// history that does not end with the user's turn.
func BuildRequest(h []Message) (Request, bool) {
	var req Request
	rest := h
	if len(h) > 0 && h[0].Role == RoleSystem {
		req.System = h[0].Content
		rest = h[1:]
	}

	start := -1
	for i, m := range rest {
		if m.Role == RoleUser {
			start = i
			break
		}
	}
	if start < 0 {
		return req, false
	}
	rest = rest[start:]
	if rest[len(rest)-1].Role != RoleUser {
		return req, false
	}

	req.Messages = clone(rest)
	return req, true
}
