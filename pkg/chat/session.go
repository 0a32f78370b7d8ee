// Package chat ties the conversation manager, inference engine and tool
// registry into an interactive session.
package chat

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/toolhelpers"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Session drives one conversation. The system prompt is prepended to every
// model request but never stored in the transcript, so clearing the history
// keeps the assistant's instructions intact.
type Session struct {
	manager      conversation.Manager
	eng          engine.Engine
	registry     tools.ToolRegistry
	toolConfig   *tools.ToolConfig
	systemPrompt string
}

type SessionOption func(*Session)

func WithSystemPrompt(prompt string) SessionOption {
	return func(s *Session) {
		s.systemPrompt = prompt
	}
}

func WithToolConfig(config *tools.ToolConfig) SessionOption {
	return func(s *Session) {
		s.toolConfig = config
	}
}

func WithManager(manager conversation.Manager) SessionOption {
	return func(s *Session) {
		s.manager = manager
	}
}

func NewSession(eng engine.Engine, registry tools.ToolRegistry, options ...SessionOption) *Session {
	s := &Session{
		manager:    conversation.NewManager(),
		eng:        eng,
		registry:   registry,
		toolConfig: tools.NewToolConfig(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Session) Manager() conversation.Manager {
	return s.manager
}

// SendMessage appends the user's message and runs decision steps and tool
// dispatch until the assistant settles on a final answer. The assistant's
// messages are committed to the transcript only when the whole turn
// succeeds; the user message always stays.
func (s *Session) SendMessage(ctx context.Context, text string) (*conversation.Message, error) {
	userMessage := conversation.NewChatMessage(conversation.RoleUser, text)
	s.manager.AppendMessages(userMessage)

	request := s.buildRequest()
	updated, err := toolhelpers.RunToolCallingLoop(ctx, s.eng, request, s.registry, s.toolConfig)
	if err != nil {
		return nil, err
	}

	newMessages := updated[len(request):]
	if len(newMessages) == 0 {
		return nil, errors.Wrap(toolhelpers.ErrMalformedState, "inference produced no messages")
	}
	s.manager.AppendMessages(newMessages...)

	last := updated.LastMessage()
	log.Debug().
		Int("new_messages", len(newMessages)).
		Int("history_length", s.manager.Len()).
		Msg("turn committed")
	return last, nil
}

// buildRequest prefixes the stored history with the system prompt.
func (s *Session) buildRequest() conversation.Conversation {
	history := s.manager.GetConversation()
	if s.systemPrompt == "" {
		return history
	}
	request := make(conversation.Conversation, 0, len(history)+1)
	request = append(request, conversation.NewChatMessage(conversation.RoleSystem, s.systemPrompt))
	return append(request, history...)
}

// Clear drops the transcript. The system prompt survives.
func (s *Session) Clear() {
	s.manager.Clear()
}

// LastAssistantText returns the text of the most recent assistant chat
// message, or an empty string.
func LastAssistantText(messages conversation.Conversation) string {
	for i := len(messages) - 1; i >= 0; i-- {
		content, ok := messages[i].Content.(*conversation.ChatMessageContent)
		if ok && content.Role == conversation.RoleAssistant {
			return content.Text
		}
	}
	return ""
}
