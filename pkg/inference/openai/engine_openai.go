package openai

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// maxAttempts bounds retries of the model call before the step fails with
// ErrModelUnavailable.
const maxAttempts = 2

// OpenAIEngine implements the Engine interface against the OpenAI chat
// completion API, always in streaming mode. Tool definitions from the
// registry are advertised on every request.
type OpenAIEngine struct {
	settings *settings.StepSettings
	config   *engine.Config
	registry tools.ToolRegistry
	toolCfg  *tools.ToolConfig
}

var _ engine.Engine = (*OpenAIEngine)(nil)

func NewOpenAIEngine(stepSettings *settings.StepSettings, options ...engine.Option) (*OpenAIEngine, error) {
	config := engine.NewConfig()
	if err := engine.ApplyOptions(config, options...); err != nil {
		return nil, err
	}

	return &OpenAIEngine{
		settings: stepSettings,
		config:   config,
	}, nil
}

// WithTools advertises the registry's tools on subsequent requests.
func (e *OpenAIEngine) WithTools(registry tools.ToolRegistry, toolCfg *tools.ToolConfig) *OpenAIEngine {
	e.registry = registry
	e.toolCfg = toolCfg
	return e
}

// RunInference sends the transcript to the model and appends the reply:
// one assistant text message (possibly empty when the model only calls
// tools) followed by one tool-use message per requested call.
func (e *OpenAIEngine) RunInference(
	ctx context.Context,
	messages conversation.Conversation,
) (conversation.Conversation, error) {
	client, err := MakeClient(e.settings.API)
	if err != nil {
		return nil, err
	}

	req, err := MakeCompletionRequest(e.settings, messages)
	if err != nil {
		return nil, err
	}
	e.addTools(req)

	metadata := events.EventMetadata{
		ID:    uuid.New(),
		Model: req.Model,
	}
	e.publishEvent(ctx, events.NewStartEvent(metadata))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, toolCalls, stopReason, err := e.streamCompletion(ctx, client, req, metadata)
		if err == nil {
			metadata.StopReason = stopReason

			for _, tc := range toolCalls {
				e.publishEvent(ctx, events.NewToolCallEvent(metadata, events.ToolCall{
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: tc.Function.Arguments,
				}))
			}

			updated := append(messages, conversation.NewChatMessage(conversation.RoleAssistant, text))
			for _, tc := range toolCalls {
				updated = append(updated, conversation.NewToolUseMessage(
					tc.ID, tc.Function.Name, json.RawMessage(tc.Function.Arguments)))
			}

			e.publishEvent(ctx, events.NewFinalEvent(metadata, text))
			return updated, nil
		}

		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("model call failed")
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}

	wrapped := errors.Wrapf(engine.ErrModelUnavailable, "%v", lastErr)
	e.publishEvent(ctx, events.NewErrorEvent(metadata, wrapped))
	return nil, wrapped
}

func (e *OpenAIEngine) addTools(req *go_openai.ChatCompletionRequest) {
	if e.registry == nil || e.registry.Count() == 0 {
		return
	}
	toolCfg := e.toolCfg
	if toolCfg == nil {
		toolCfg = tools.NewToolConfig()
	}
	if !toolCfg.Enabled {
		return
	}

	var openaiTools []go_openai.Tool
	for _, tool := range e.registry.ListTools() {
		if !toolCfg.IsToolAllowed(tool.Name) {
			continue
		}
		openaiTools = append(openaiTools, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: go_openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if len(openaiTools) == 0 {
		return
	}

	req.Tools = openaiTools
	req.ToolChoice = string(toolCfg.ToolChoice)
}

func (e *OpenAIEngine) streamCompletion(
	ctx context.Context,
	client *go_openai.Client,
	req *go_openai.ChatCompletionRequest,
	metadata events.EventMetadata,
) (string, []go_openai.ToolCall, *string, error) {
	if e.settings.API.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.API.Timeout)
		defer cancel()
	}

	stream, err := client.CreateChatCompletionStream(ctx, *req)
	if err != nil {
		return "", nil, nil, err
	}
	defer stream.Close()

	message := ""
	merger := NewToolCallMerger()
	var stopReason *string

	for {
		select {
		case <-ctx.Done():
			e.publishEvent(ctx, events.NewInterruptEvent(metadata, message))
			return "", nil, nil, ctx.Err()

		default:
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return message, merger.GetToolCalls(), stopReason, nil
			}
			if err != nil {
				return "", nil, nil, err
			}

			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]
			if choice.FinishReason != "" {
				reason := string(choice.FinishReason)
				stopReason = &reason
			}
			if len(choice.Delta.ToolCalls) > 0 {
				merger.AddToolCalls(choice.Delta.ToolCalls)
			}
			if delta := choice.Delta.Content; delta != "" {
				message += delta
				e.publishEvent(ctx, events.NewPartialCompletionEvent(metadata, delta, message))
			}
		}
	}
}

func (e *OpenAIEngine) publishEvent(ctx context.Context, event events.Event) {
	for _, sink := range e.config.EventSinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to publish event")
		}
	}
	events.PublishEventToContext(ctx, event)
}
