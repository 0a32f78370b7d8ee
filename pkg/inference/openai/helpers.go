package openai

import (
	"sort"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// ToolCallMerger accumulates streamed tool call deltas. OpenAI streams tool
// calls in fragments keyed by index: the first fragment carries the ID and
// name, later ones append argument text.
type ToolCallMerger struct {
	toolCalls map[int]go_openai.ToolCall
}

func NewToolCallMerger() *ToolCallMerger {
	return &ToolCallMerger{
		toolCalls: make(map[int]go_openai.ToolCall),
	}
}

func (tcm *ToolCallMerger) AddToolCalls(toolCalls []go_openai.ToolCall) {
	for _, call := range toolCalls {
		index := 0
		if call.Index != nil {
			index = *call.Index
		}
		if existing, found := tcm.toolCalls[index]; found {
			existing.Function.Name += call.Function.Name
			existing.Function.Arguments += call.Function.Arguments
			tcm.toolCalls[index] = existing
		} else {
			tcm.toolCalls[index] = call
		}
	}
}

// GetToolCalls returns the merged calls in stream index order.
func (tcm *ToolCallMerger) GetToolCalls() []go_openai.ToolCall {
	indices := make([]int, 0, len(tcm.toolCalls))
	for index := range tcm.toolCalls {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	result := make([]go_openai.ToolCall, 0, len(indices))
	for _, index := range indices {
		result = append(result, tcm.toolCalls[index])
	}
	return result
}

func MakeClient(apiSettings *settings.APISettings) (*go_openai.Client, error) {
	if apiSettings == nil || apiSettings.APIKey == "" {
		return nil, errors.New("no API key configured")
	}
	config := go_openai.DefaultConfig(apiSettings.APIKey)
	if apiSettings.BaseURL != "" {
		config.BaseURL = apiSettings.BaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

// MakeCompletionRequest converts the transcript into OpenAI wire format.
// Tool-use messages are folded into the preceding assistant message's
// tool_calls list, since the API requires assistant tool calls and their
// text to travel in a single message.
func MakeCompletionRequest(
	stepSettings *settings.StepSettings,
	messages conversation.Conversation,
) (*go_openai.ChatCompletionRequest, error) {
	if stepSettings.Chat == nil || stepSettings.Chat.Model == "" {
		return nil, errors.New("no model specified")
	}

	var msgs []go_openai.ChatCompletionMessage
	var pendingToolCalls []go_openai.ToolCall
	pendingAssistantText := ""
	haveAssistant := false

	flush := func() {
		if !haveAssistant && len(pendingToolCalls) == 0 {
			return
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:      go_openai.ChatMessageRoleAssistant,
			Content:   pendingAssistantText,
			ToolCalls: pendingToolCalls,
		})
		pendingToolCalls = nil
		pendingAssistantText = ""
		haveAssistant = false
	}

	for _, msg := range messages {
		switch content := msg.Content.(type) {
		case *conversation.ChatMessageContent:
			if content.Role == conversation.RoleAssistant {
				flush()
				pendingAssistantText = content.Text
				haveAssistant = true
				continue
			}
			flush()
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:    string(content.Role),
				Content: content.Text,
			})

		case *conversation.ToolUseContent:
			pendingToolCalls = append(pendingToolCalls, go_openai.ToolCall{
				ID:   content.ToolID,
				Type: go_openai.ToolTypeFunction,
				Function: go_openai.FunctionCall{
					Name:      content.Name,
					Arguments: string(content.Input),
				},
			})

		case *conversation.ToolResultContent:
			flush()
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    content.Result,
				ToolCallID: content.ToolID,
			})

		default:
			return nil, errors.Errorf("unsupported content type %s", msg.Content.ContentType())
		}
	}
	flush()

	req := &go_openai.ChatCompletionRequest{
		Model:    stepSettings.Chat.Model,
		Messages: msgs,
		Stream:   true,
	}
	if stepSettings.Chat.Temperature != nil {
		req.Temperature = float32(*stepSettings.Chat.Temperature)
	}
	if stepSettings.Chat.MaxResponseTokens != nil {
		req.MaxTokens = *stepSettings.Chat.MaxResponseTokens
	}

	return req, nil
}
