// ABOUTME: Tests for the AI orchestrator history updates and failure mapping
// ABOUTME: Uses a scripted completer in place of a real provider

package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chatops/internal/ai"
	"github.com/2389/coven-chatops/internal/conversation"
)

const chat = conversation.ChatID("dm")

type fakeCompleter struct {
	reply string
	err   error
	panic bool

	calls  int
	system string
	seen   []conversation.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, messages []conversation.Message) (string, error) {
	f.calls++
	f.system = system
	f.seen = messages
	if f.panic {
		panic("provider exploded")
	}
	return f.reply, f.err
}

func user(s string) conversation.Message {
	return conversation.Message{Role: conversation.RoleUser, Content: s}
}

func assistant(s string) conversation.Message {
	return conversation.Message{Role: conversation.RoleAssistant, Content: s}
}

func TestOrchestrator_Success(t *testing.T) {
	st := conversation.NewStore()
	fc := &fakeCompleter{reply: "hello there"}
	o := New(st, fc)

	req, ok := o.Prepare(chat, "hi")
	require.True(t, ok)
	assert.Equal(t, []conversation.Message{user("hi")}, req.Messages)

	reply := o.Complete(context.Background(), chat, req)
	assert.Equal(t, Reply{Text: "hello there", OK: true}, reply)
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, []conversation.Message{user("hi"), assistant("hello there")}, st.History(chat))
}

func TestOrchestrator_FailureKinds(t *testing.T) {
	tests := []struct {
		kind ai.Kind
		want string
	}{
		{ai.KindAuth, FallbackAuth},
		{ai.KindRateLimit, FallbackRateLimit},
		{ai.KindMalformed, FallbackMalformed},
		{ai.KindTransport, FallbackTransport},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			st := conversation.NewStore()
			fc := &fakeCompleter{err: &ai.Error{Kind: tt.kind, Provider: "test", Err: errors.New("secret detail")}}
			o := New(st, fc)

			req, ok := o.Prepare(chat, "hi")
			require.True(t, ok)
			reply := o.Complete(context.Background(), chat, req)

			assert.Equal(t, tt.want, reply.Text)
			assert.False(t, reply.OK)
			assert.NotContains(t, reply.Text, "secret")
			assert.Equal(t, 1, fc.calls)
			assert.Equal(t, []conversation.Message{user("hi")}, st.History(chat))
		})
	}
}

func TestOrchestrator_UnclassifiedErrorIsTransport(t *testing.T) {
	o := New(conversation.NewStore(), &fakeCompleter{err: errors.New("dial tcp: refused")})
	req, _ := o.Prepare(chat, "hi")
	assert.Equal(t, FallbackTransport, o.Complete(context.Background(), chat, req).Text)
}

func TestOrchestrator_PanicBecomesFallback(t *testing.T) {
	st := conversation.NewStore()
	o := New(st, &fakeCompleter{panic: true})

	req, _ := o.Prepare(chat, "hi")
	reply := o.Complete(context.Background(), chat, req)

	assert.Equal(t, Reply{Text: FallbackUnexpected}, reply)
	assert.Equal(t, []conversation.Message{user("hi")}, st.History(chat))
}

func TestOrchestrator_FailureThenRetryMergesUserTurns(t *testing.T) {
	st := conversation.NewStore()
	fc := &fakeCompleter{err: &ai.Error{Kind: ai.KindRateLimit, Err: errors.New("429")}}
	o := New(st, fc)

	req, _ := o.Prepare(chat, "first")
	o.Complete(context.Background(), chat, req)

	fc.err = nil
	fc.reply = "ok"
	req, ok := o.Prepare(chat, "second")
	require.True(t, ok)
	assert.Equal(t, []conversation.Message{user("first\n\nsecond")}, req.Messages)

	o.Complete(context.Background(), chat, req)
	assert.Equal(t, []conversation.Message{user("first\n\nsecond"), assistant("ok")}, st.History(chat))
}

func TestOrchestrator_SystemPrompt(t *testing.T) {
	st := conversation.NewStore(conversation.WithSystemPrompt("be brief"))
	fc := &fakeCompleter{reply: "ok"}
	o := New(st, fc, WithDefaultSystem("ignored when history has one"))

	req, ok := o.Prepare(chat, "hi")
	require.True(t, ok)
	o.Complete(context.Background(), chat, req)

	assert.Equal(t, "be brief", fc.system)
	assert.Equal(t, []conversation.Message{user("hi")}, fc.seen)
}

func TestOrchestrator_DefaultSystem(t *testing.T) {
	fc := &fakeCompleter{reply: "ok"}
	o := New(conversation.NewStore(), fc, WithDefaultSystem("you are a helpful bot"))

	req, _ := o.Prepare(chat, "hi")
	o.Complete(context.Background(), chat, req)
	assert.Equal(t, "you are a helpful bot", fc.system)
}

func TestOrchestrator_WindowHoldsAcrossManyTurns(t *testing.T) {
	st := conversation.NewStore(conversation.WithWindow(4))
	fc := &fakeCompleter{reply: "r"}
	o := New(st, fc)

	for i := 0; i < 20; i++ {
		req, ok := o.Prepare(chat, "q")
		require.True(t, ok)
		assert.Equal(t, conversation.RoleUser, req.Messages[len(req.Messages)-1].Role)
		o.Complete(context.Background(), chat, req)
		assert.LessOrEqual(t, len(st.History(chat)), 4)
	}
}

func TestFallback_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []string{FallbackAuth, FallbackRateLimit, FallbackMalformed, FallbackTransport, FallbackNoRequest, FallbackUnexpected} {
		assert.False(t, seen[s], s)
		seen[s] = true
	}
}
