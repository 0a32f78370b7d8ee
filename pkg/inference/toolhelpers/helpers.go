package toolhelpers

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrMalformedState marks a transcript that violates the turn protocol,
// e.g. a decision step that did not append an assistant turn. It is fatal:
// the session cannot continue from a corrupted transcript.
var ErrMalformedState = errors.New("malformed conversation state")

// Route is the outcome of inspecting a conversation after a decision step.
type Route int

const (
	// RouteTerminal means the assistant's latest turn requested no tools;
	// control returns to the user.
	RouteTerminal Route = iota
	// RouteDispatch means the latest turn contains pending tool calls that
	// must be executed before the next decision step.
	RouteDispatch
)

// ExtractPendingToolCalls returns the tool calls that have no matching
// tool result yet, in the order the assistant requested them.
func ExtractPendingToolCalls(messages conversation.Conversation) []tools.ToolCall {
	answered := map[string]bool{}
	for _, msg := range messages {
		if result, ok := msg.Content.(*conversation.ToolResultContent); ok {
			answered[result.ToolID] = true
		}
	}

	var pending []tools.ToolCall
	for _, msg := range messages {
		use, ok := msg.Content.(*conversation.ToolUseContent)
		if !ok || answered[use.ToolID] {
			continue
		}
		pending = append(pending, tools.ToolCall{
			ID:        use.ToolID,
			Name:      use.Name,
			Arguments: use.Input,
		})
	}
	return pending
}

// RouteAfterInference decides where control flows after a decision step.
// The transcript must end in the assistant's turn: either a chat message
// authored by the assistant, or a tool-use request.
func RouteAfterInference(messages conversation.Conversation) (Route, error) {
	last := messages.LastMessage()
	if last == nil {
		return RouteTerminal, errors.Wrap(ErrMalformedState, "empty conversation after inference")
	}

	switch content := last.Content.(type) {
	case *conversation.ChatMessageContent:
		if content.Role != conversation.RoleAssistant {
			return RouteTerminal, errors.Wrapf(ErrMalformedState, "conversation ends in %s message", content.Role)
		}
	case *conversation.ToolUseContent:
		// tool requests always come from the assistant
	default:
		return RouteTerminal, errors.Wrapf(ErrMalformedState, "conversation ends in %s", last.Content.ContentType())
	}

	if len(ExtractPendingToolCalls(messages)) > 0 {
		return RouteDispatch, nil
	}
	return RouteTerminal, nil
}

// RunToolCallingLoop alternates decision steps and tool dispatch until the
// assistant produces a turn with no tool calls, or MaxIterations decision
// steps have run. Tool results are appended as tool-result messages keyed
// by the originating call's correlation ID, in request order.
func RunToolCallingLoop(
	ctx context.Context,
	eng engine.Engine,
	messages conversation.Conversation,
	registry tools.ToolRegistry,
	config *tools.ToolConfig,
) (conversation.Conversation, error) {
	if config == nil {
		config = tools.NewToolConfig()
	}
	executor := tools.NewDefaultToolExecutor()

	for i := 0; i < config.MaxIterations; i++ {
		log.Debug().Int("iteration", i+1).Msg("running decision step")

		updated, err := eng.RunInference(ctx, messages)
		if err != nil {
			return messages, err
		}
		messages = updated

		route, err := RouteAfterInference(messages)
		if err != nil {
			return messages, err
		}
		if route == RouteTerminal {
			return messages, nil
		}

		calls := ExtractPendingToolCalls(messages)
		results, err := executor.ExecuteToolCalls(ctx, calls, registry, config)
		if err != nil {
			return messages, err
		}

		callNames := map[string]string{}
		for _, call := range calls {
			callNames[call.ID] = call.Name
		}
		for _, result := range results {
			text := result.ResultString()
			messages = append(messages, conversation.NewToolResultMessage(result.ID, callNames[result.ID], text))
			events.PublishEventToContext(ctx, events.NewToolResultEvent(
				events.EventMetadata{},
				events.ToolResult{ID: result.ID, Result: text},
			))
		}
	}

	log.Warn().Int("max_iterations", config.MaxIterations).Msg("tool calling loop hit iteration limit")
	return messages, errors.Errorf("max iterations (%d) reached", config.MaxIterations)
}
