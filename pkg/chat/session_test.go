package chat

import (
	"context"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyEngine answers every request with a fixed assistant message and
// records the request it received.
type replyEngine struct {
	reply    string
	err      error
	requests []conversation.Conversation
}

func (e *replyEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Conversation, error) {
	e.requests = append(e.requests, messages)
	if e.err != nil {
		return nil, e.err
	}
	return append(messages, conversation.NewChatMessage(conversation.RoleAssistant, e.reply)), nil
}

func newTestSession(eng engine.Engine, options ...SessionOption) *Session {
	return NewSession(eng, tools.NewInMemoryToolRegistry(), options...)
}

func TestSendMessageCommitsTurn(t *testing.T) {
	eng := &replyEngine{reply: "hello there"}
	session := newTestSession(eng)

	last, err := session.SendMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", last.Content.(*conversation.ChatMessageContent).Text)

	messages := session.Manager().GetConversation()
	require.Len(t, messages, 2)
	assert.Equal(t, conversation.RoleUser, messages[0].Content.(*conversation.ChatMessageContent).Role)
	assert.Equal(t, conversation.RoleAssistant, messages[1].Content.(*conversation.ChatMessageContent).Role)
}

func TestSystemPromptSentButNotStored(t *testing.T) {
	eng := &replyEngine{reply: "aye"}
	session := newTestSession(eng, WithSystemPrompt("talk like a pirate"))

	_, err := session.SendMessage(context.Background(), "hi")
	require.NoError(t, err)

	require.Len(t, eng.requests, 1)
	first := eng.requests[0][0].Content.(*conversation.ChatMessageContent)
	assert.Equal(t, conversation.RoleSystem, first.Role)
	assert.Equal(t, "talk like a pirate", first.Text)

	for _, msg := range session.Manager().GetConversation() {
		if content, ok := msg.Content.(*conversation.ChatMessageContent); ok {
			assert.NotEqual(t, conversation.RoleSystem, content.Role)
		}
	}
}

func TestSystemPromptSurvivesClear(t *testing.T) {
	eng := &replyEngine{reply: "aye"}
	session := newTestSession(eng, WithSystemPrompt("talk like a pirate"))

	_, err := session.SendMessage(context.Background(), "hi")
	require.NoError(t, err)

	session.Clear()
	assert.Equal(t, 0, session.Manager().Len())

	_, err = session.SendMessage(context.Background(), "hi again")
	require.NoError(t, err)

	require.Len(t, eng.requests, 2)
	first := eng.requests[1][0].Content.(*conversation.ChatMessageContent)
	assert.Equal(t, conversation.RoleSystem, first.Role)
}

func TestSendMessageFailureKeepsUserMessageOnly(t *testing.T) {
	eng := &replyEngine{err: errors.New("connection refused")}
	session := newTestSession(eng)

	_, err := session.SendMessage(context.Background(), "hi")
	require.Error(t, err)

	messages := session.Manager().GetConversation()
	require.Len(t, messages, 1)
	assert.Equal(t, conversation.RoleUser, messages[0].Content.(*conversation.ChatMessageContent).Role)
}

func TestSendMessageAccumulatesHistory(t *testing.T) {
	eng := &replyEngine{reply: "ok"}
	session := newTestSession(eng)

	_, err := session.SendMessage(context.Background(), "first")
	require.NoError(t, err)
	_, err = session.SendMessage(context.Background(), "second")
	require.NoError(t, err)

	// The second request must carry the full prior exchange.
	require.Len(t, eng.requests, 2)
	assert.Len(t, eng.requests[1], 3)
	assert.Equal(t, 4, session.Manager().Len())
}

func TestLastAssistantText(t *testing.T) {
	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
		conversation.NewChatMessage(conversation.RoleAssistant, "hello"),
		conversation.NewToolResultMessage("call-1", "web_search", "results"),
	}
	assert.Equal(t, "hello", LastAssistantText(messages))
	assert.Equal(t, "", LastAssistantText(conversation.Conversation{}))
}
