package openai

import (
	"encoding/json"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	go_openai "github.com/sashabaranov/go-openai"
)

func intPtr(i int) *int { return &i }

func TestToolCallMergerMergesFragments(t *testing.T) {
	merger := NewToolCallMerger()

	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), ID: "call-1", Function: go_openai.FunctionCall{Name: "search", Arguments: `{"que`}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(0), Function: go_openai.FunctionCall{Arguments: `ry": "weather"}`}},
	})
	merger.AddToolCalls([]go_openai.ToolCall{
		{Index: intPtr(1), ID: "call-2", Function: go_openai.FunctionCall{Name: "add", Arguments: `{}`}},
	})

	calls := merger.GetToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "search", calls[0].Function.Name)
	assert.Equal(t, `{"query": "weather"}`, calls[0].Function.Arguments)
	assert.Equal(t, "call-2", calls[1].ID)
}

func TestMakeCompletionRequestBasicChat(t *testing.T) {
	s := settings.NewStepSettings()

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleSystem, "you are helpful"),
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
		conversation.NewChatMessage(conversation.RoleAssistant, "hello"),
	}

	req, err := MakeCompletionRequest(s, messages)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "assistant", req.Messages[2].Role)
	assert.Equal(t, "hello", req.Messages[2].Content)
}

func TestMakeCompletionRequestFoldsToolCallsIntoAssistantMessage(t *testing.T) {
	s := settings.NewStepSettings()

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "what is the weather?"),
		conversation.NewChatMessage(conversation.RoleAssistant, ""),
		conversation.NewToolUseMessage("call-1", "search", json.RawMessage(`{"query":"weather"}`)),
		conversation.NewToolUseMessage("call-2", "search", json.RawMessage(`{"query":"forecast"}`)),
		conversation.NewToolResultMessage("call-1", "search", "sunny"),
		conversation.NewToolResultMessage("call-2", "search", "rain tomorrow"),
		conversation.NewChatMessage(conversation.RoleAssistant, "sunny today, rain tomorrow"),
	}

	req, err := MakeCompletionRequest(s, messages)
	require.NoError(t, err)

	require.Len(t, req.Messages, 5)

	assistant := req.Messages[1]
	assert.Equal(t, "assistant", assistant.Role)
	require.Len(t, assistant.ToolCalls, 2)
	assert.Equal(t, "call-1", assistant.ToolCalls[0].ID)
	assert.Equal(t, "call-2", assistant.ToolCalls[1].ID)

	assert.Equal(t, "tool", req.Messages[2].Role)
	assert.Equal(t, "call-1", req.Messages[2].ToolCallID)
	assert.Equal(t, "sunny", req.Messages[2].Content)
	assert.Equal(t, "tool", req.Messages[3].Role)
	assert.Equal(t, "call-2", req.Messages[3].ToolCallID)

	assert.Equal(t, "assistant", req.Messages[4].Role)
	assert.Equal(t, "sunny today, rain tomorrow", req.Messages[4].Content)
}

func TestMakeCompletionRequestAppliesChatSettings(t *testing.T) {
	s := settings.NewStepSettings()
	temperature := 0.3
	s.Chat.Temperature = &temperature
	maxTokens := 512
	s.Chat.MaxResponseTokens = &maxTokens

	req, err := MakeCompletionRequest(s, conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.3, float64(req.Temperature), 0.001)
	assert.Equal(t, 512, req.MaxTokens)
}

func TestMakeCompletionRequestRequiresModel(t *testing.T) {
	s := settings.NewStepSettings()
	s.Chat.Model = ""

	_, err := MakeCompletionRequest(s, conversation.Conversation{})
	assert.Error(t, err)
}

func TestMakeClientRequiresAPIKey(t *testing.T) {
	s := settings.NewStepSettings()
	_, err := MakeClient(s.API)
	assert.Error(t, err)

	s.API.APIKey = "sk-test"
	client, err := MakeClient(s.API)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
