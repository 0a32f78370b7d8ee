package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ContentType string

const (
	ContentTypeChatMessage ContentType = "chat-message"
	ContentTypeToolUse     ContentType = "tool-use"
	ContentTypeToolResult  ContentType = "tool-result"
)

// MessageContent is an interface for the different kinds of message payloads.
type MessageContent interface {
	ContentType() ContentType
	String() string
	View() string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleTool      Role = "tool"
)

type ChatMessageContent struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

func (c *ChatMessageContent) ContentType() ContentType {
	return ContentTypeChatMessage
}

func (c *ChatMessageContent) String() string {
	return c.Text
}

func (c *ChatMessageContent) View() string {
	return fmt.Sprintf("[%s]: %s", c.Role, strings.TrimRight(c.Text, "\n"))
}

var _ MessageContent = (*ChatMessageContent)(nil)

// ToolUseContent is a tool call requested by the assistant. ToolID is the
// correlation identifier that the eventual tool result must carry back.
type ToolUseContent struct {
	ToolID string          `json:"toolID" yaml:"toolID"`
	Name   string          `json:"name" yaml:"name"`
	Input  json.RawMessage `json:"input" yaml:"input"`
}

func (t *ToolUseContent) ContentType() ContentType {
	return ContentTypeToolUse
}

func (t *ToolUseContent) String() string {
	return fmt.Sprintf("ToolUseContent{ToolID: %s, Name: %s, Input: %s}", t.ToolID, t.Name, t.Input)
}

func (t *ToolUseContent) View() string {
	return fmt.Sprintf("[tool-call %s]: %s(%s)", t.ToolID, t.Name, t.Input)
}

var _ MessageContent = (*ToolUseContent)(nil)

// ToolResultContent carries the outcome of one tool call. Name is the
// originating tool, ToolID the correlation identifier of the request.
type ToolResultContent struct {
	ToolID string `json:"toolID" yaml:"toolID"`
	Name   string `json:"name" yaml:"name"`
	Result string `json:"result" yaml:"result"`
}

func (t *ToolResultContent) ContentType() ContentType {
	return ContentTypeToolResult
}

func (t *ToolResultContent) String() string {
	return fmt.Sprintf("ToolResultContent{ToolID: %s, Result: %s}", t.ToolID, t.Result)
}

func (t *ToolResultContent) View() string {
	return fmt.Sprintf("[tool-result %s]: %s", t.ToolID, t.Result)
}

var _ MessageContent = (*ToolResultContent)(nil)

// Message is a single entry in the conversation transcript.
type Message struct {
	ID   uuid.UUID `json:"id" yaml:"id"`
	Time time.Time `json:"time" yaml:"time"`

	Content  MessageContent         `json:"content" yaml:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(message *Message) {
		message.Time = t
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(message *Message) {
		message.Metadata = metadata
	}
}

func NewMessage(content MessageContent, options ...MessageOption) *Message {
	ret := &Message{
		ID:      uuid.New(),
		Time:    time.Now(),
		Content: content,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(&ChatMessageContent{
		Role: role,
		Text: text,
	}, options...)
}

func NewToolUseMessage(toolID string, name string, input json.RawMessage, options ...MessageOption) *Message {
	return NewMessage(&ToolUseContent{
		ToolID: toolID,
		Name:   name,
		Input:  input,
	}, options...)
}

func NewToolResultMessage(toolID string, name string, result string, options ...MessageOption) *Message {
	return NewMessage(&ToolResultContent{
		ToolID: toolID,
		Name:   name,
		Result: result,
	}, options...)
}

func (mn *Message) MarshalJSON() ([]byte, error) {
	type Alias Message
	return json.Marshal(&struct {
		ContentType ContentType `json:"contentType"`
		*Alias
	}{
		ContentType: mn.Content.ContentType(),
		Alias:       (*Alias)(mn),
	})
}

// Conversation is the ordered, append-only transcript of a session.
type Conversation []*Message

// GetSinglePrompt renders the chat messages as a single prompt string,
// one "[role]: text" line per message.
func (messages Conversation) GetSinglePrompt() string {
	if len(messages) == 0 {
		return ""
	}

	if len(messages) == 1 && messages[0].Content.ContentType() == ContentTypeChatMessage {
		return messages[0].Content.(*ChatMessageContent).Text
	}

	prompt := ""
	for _, message := range messages {
		if message.Content.ContentType() == ContentTypeChatMessage {
			content := message.Content.(*ChatMessageContent)
			prompt += fmt.Sprintf("[%s]: %s\n", content.Role, content.Text)
		}
	}

	return prompt
}

// LastMessage returns the most recent message, or nil for an empty transcript.
func (messages Conversation) LastMessage() *Message {
	if len(messages) == 0 {
		return nil
	}
	return messages[len(messages)-1]
}
