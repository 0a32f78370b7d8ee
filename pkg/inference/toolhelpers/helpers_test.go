package toolhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEngine replays a fixed sequence of assistant turns, appending the
// next one on each RunInference call.
type scriptedEngine struct {
	turns [][]*conversation.Message
	step  int
	err   error
}

func (s *scriptedEngine) RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Conversation, error) {
	if s.err != nil {
		return messages, s.err
	}
	if s.step >= len(s.turns) {
		return append(messages, conversation.NewChatMessage(conversation.RoleAssistant, "done")), nil
	}
	turn := s.turns[s.step]
	s.step++
	return append(messages, turn...), nil
}

type calcInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newCalcRegistry(t *testing.T) *tools.InMemoryToolRegistry {
	t.Helper()
	registry := tools.NewInMemoryToolRegistry()

	add, err := tools.NewToolFromFunc("add", "adds two integers", func(in calcInput) (int, error) {
		return in.A + in.B, nil
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool("add", *add))

	fail, err := tools.NewToolFromFunc("fail", "always errors", func(in calcInput) (int, error) {
		return 0, errors.New("division by zero")
	})
	require.NoError(t, err)
	require.NoError(t, registry.RegisterTool("fail", *fail))

	return registry
}

func toolUse(id, name, args string) *conversation.Message {
	return conversation.NewToolUseMessage(id, name, json.RawMessage(args))
}

func TestRunToolCallingLoopTwoCalls(t *testing.T) {
	eng := &scriptedEngine{turns: [][]*conversation.Message{
		{
			conversation.NewChatMessage(conversation.RoleAssistant, ""),
			toolUse("call-1", "add", `{"a": 2, "b": 2}`),
			toolUse("call-2", "add", `{"a": 3, "b": 4}`),
		},
		{
			conversation.NewChatMessage(conversation.RoleAssistant, "2+2 is 4 and 3+4 is 7"),
		},
	}}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "what is 2+2 and 3+4?"),
	}

	result, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), tools.NewToolConfig())
	require.NoError(t, err)

	last := result.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, "2+2 is 4 and 3+4 is 7", last.Content.(*conversation.ChatMessageContent).Text)

	var results []*conversation.ToolResultContent
	for _, msg := range result {
		if tr, ok := msg.Content.(*conversation.ToolResultContent); ok {
			results = append(results, tr)
		}
	}
	require.Len(t, results, 2)
	assert.Equal(t, "call-1", results[0].ToolID)
	assert.Equal(t, "4", results[0].Result)
	assert.Equal(t, "call-2", results[1].ToolID)
	assert.Equal(t, "7", results[1].Result)
}

func TestRunToolCallingLoopTerminalWithoutTools(t *testing.T) {
	eng := &scriptedEngine{turns: [][]*conversation.Message{
		{conversation.NewChatMessage(conversation.RoleAssistant, "4")},
	}}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "what is 2+2?"),
	}

	result, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), tools.NewToolConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, eng.step, "a terminal answer must end the loop after one decision step")

	require.Len(t, result, 2)
	assert.Equal(t, "4", result.LastMessage().Content.(*conversation.ChatMessageContent).Text)
	for _, msg := range result {
		_, ok := msg.Content.(*conversation.ToolResultContent)
		assert.False(t, ok, "no dispatch should run when nothing is pending")
	}
}

func TestRunToolCallingLoopUnknownToolAppendsNothing(t *testing.T) {
	eng := &scriptedEngine{turns: [][]*conversation.Message{
		{
			conversation.NewChatMessage(conversation.RoleAssistant, ""),
			toolUse("call-1", "add", `{"a": 1, "b": 1}`),
			toolUse("call-2", "teleport", `{}`),
		},
	}}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
	}

	result, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), tools.NewToolConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrUnknownTool))

	for _, msg := range result {
		_, ok := msg.Content.(*conversation.ToolResultContent)
		assert.False(t, ok, "no tool result should be committed for a batch with an unknown tool")
	}
}

func TestRunToolCallingLoopFailingToolContinues(t *testing.T) {
	eng := &scriptedEngine{turns: [][]*conversation.Message{
		{
			conversation.NewChatMessage(conversation.RoleAssistant, ""),
			toolUse("call-1", "fail", `{"a": 1, "b": 0}`),
		},
		{
			conversation.NewChatMessage(conversation.RoleAssistant, "that did not work"),
		},
	}}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "divide by zero please"),
	}

	result, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), tools.NewToolConfig())
	require.NoError(t, err)

	var toolResult *conversation.ToolResultContent
	for _, msg := range result {
		if tr, ok := msg.Content.(*conversation.ToolResultContent); ok {
			toolResult = tr
		}
	}
	require.NotNil(t, toolResult)
	assert.Equal(t, "call-1", toolResult.ToolID)
	assert.Contains(t, toolResult.Result, "division by zero")

	last := result.LastMessage()
	assert.Equal(t, "that did not work", last.Content.(*conversation.ChatMessageContent).Text)
}

func TestRunToolCallingLoopMaxIterations(t *testing.T) {
	// An engine that always asks for another tool call never terminates on
	// its own; the loop must stop at MaxIterations.
	turns := [][]*conversation.Message{}
	for i := 0; i < 10; i++ {
		turns = append(turns, []*conversation.Message{
			toolUse(fmt.Sprintf("call-%d", i), "add", `{"a": 1, "b": 1}`),
		})
	}
	eng := &scriptedEngine{turns: turns}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "loop forever"),
	}

	config := tools.NewToolConfig().WithMaxIterations(3)
	_, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max iterations")
}

func TestRunToolCallingLoopPropagatesEngineError(t *testing.T) {
	eng := &scriptedEngine{err: errors.New("connection refused")}

	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleUser, "hi"),
	}

	_, err := RunToolCallingLoop(context.Background(), eng, messages, newCalcRegistry(t), tools.NewToolConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRouteAfterInference(t *testing.T) {
	t.Run("empty conversation is malformed", func(t *testing.T) {
		_, err := RouteAfterInference(conversation.Conversation{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedState))
	})

	t.Run("trailing user message is malformed", func(t *testing.T) {
		_, err := RouteAfterInference(conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hi"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedState))
	})

	t.Run("assistant text routes terminal", func(t *testing.T) {
		route, err := RouteAfterInference(conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hi"),
			conversation.NewChatMessage(conversation.RoleAssistant, "hello"),
		})
		require.NoError(t, err)
		assert.Equal(t, RouteTerminal, route)
	})

	t.Run("pending tool call routes to dispatch", func(t *testing.T) {
		route, err := RouteAfterInference(conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hi"),
			toolUse("call-1", "add", `{}`),
		})
		require.NoError(t, err)
		assert.Equal(t, RouteDispatch, route)
	})

	t.Run("answered tool call routes terminal", func(t *testing.T) {
		messages := conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hi"),
			toolUse("call-1", "add", `{}`),
			conversation.NewToolResultMessage("call-1", "add", "2"),
			conversation.NewChatMessage(conversation.RoleAssistant, "2"),
		}
		route, err := RouteAfterInference(messages)
		require.NoError(t, err)
		assert.Equal(t, RouteTerminal, route)
	})
}

func TestExtractPendingToolCallsOrder(t *testing.T) {
	messages := conversation.Conversation{
		toolUse("call-1", "add", `{"a": 1}`),
		toolUse("call-2", "add", `{"a": 2}`),
		conversation.NewToolResultMessage("call-1", "add", "done"),
		toolUse("call-3", "add", `{"a": 3}`),
	}

	pending := ExtractPendingToolCalls(messages)
	require.Len(t, pending, 2)
	assert.Equal(t, "call-2", pending[0].ID)
	assert.Equal(t, "call-3", pending[1].ID)
}
