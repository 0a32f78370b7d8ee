package tools

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ToolExecutor runs batches of tool calls against a registry.
type ToolExecutor interface {
	ExecuteToolCalls(ctx context.Context, calls []ToolCall, registry ToolRegistry, config *ToolConfig) ([]ToolResult, error)
}

// DefaultToolExecutor validates the whole batch before running anything:
// if any call names an unregistered tool, it returns ErrUnknownTool and no
// results, so a half-executed batch never reaches the conversation.
// Runtime failures of individual calls are captured in ToolResult.Error
// instead, under the ToolErrorContinue policy.
type DefaultToolExecutor struct{}

var _ ToolExecutor = (*DefaultToolExecutor)(nil)

func NewDefaultToolExecutor() *DefaultToolExecutor {
	return &DefaultToolExecutor{}
}

func (e *DefaultToolExecutor) ExecuteToolCalls(ctx context.Context, calls []ToolCall, registry ToolRegistry, config *ToolConfig) ([]ToolResult, error) {
	if config == nil {
		config = NewToolConfig()
	}
	if len(calls) == 0 {
		return nil, nil
	}

	resolved := make([]*ToolDefinition, len(calls))
	for i, call := range calls {
		tool, err := registry.GetTool(call.Name)
		if err != nil {
			return nil, err
		}
		resolved[i] = tool
	}

	results := make([]ToolResult, len(calls))

	if config.MaxParallelTools > 1 && len(calls) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(config.MaxParallelTools)
		for i := range calls {
			i := i
			g.Go(func() error {
				results[i] = e.executeSingle(gctx, calls[i], resolved[i], config)
				if results[i].Error != "" && config.ToolErrorHandling == ToolErrorAbort {
					return errors.Errorf("tool %s failed: %s", calls[i].Name, results[i].Error)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}

	for i := range calls {
		results[i] = e.executeSingle(ctx, calls[i], resolved[i], config)
		if results[i].Error != "" && config.ToolErrorHandling == ToolErrorAbort {
			return nil, errors.Errorf("tool %s failed: %s", calls[i].Name, results[i].Error)
		}
	}
	return results, nil
}

func (e *DefaultToolExecutor) executeSingle(ctx context.Context, call ToolCall, tool *ToolDefinition, config *ToolConfig) ToolResult {
	start := time.Now()
	result := ToolResult{ID: call.ID}

	execCtx := ctx
	if config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, config.ExecutionTimeout)
		defer cancel()
	}

	log.Debug().
		Str("tool", call.Name).
		Str("id", call.ID).
		Msg("executing tool call")

	value, err := tool.Function.ExecuteWithContext(execCtx, call.Arguments)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		log.Debug().
			Str("tool", call.Name).
			Str("id", call.ID).
			Err(err).
			Msg("tool call failed")
		return result
	}

	result.Result = value
	return result
}
