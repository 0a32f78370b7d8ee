package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeStart             EventType = "start"
	EventTypeFinal             EventType = "final"
	EventTypePartialCompletion EventType = "partial"

	// Model requested a tool call (received from provider stream)
	EventTypeToolCall EventType = "tool-call"
	// A locally executed tool produced a result
	EventTypeToolResult EventType = "tool-result"

	EventTypeError     EventType = "error"
	EventTypeInterrupt EventType = "interrupt"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

// Usage reports token consumption for one inference.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// EventMetadata is attached to every event emitted during one inference.
type EventMetadata struct {
	ID         uuid.UUID `json:"message_id"`
	Model      string    `json:"model,omitempty"`
	Usage      *Usage    `json:"usage,omitempty"`
	StopReason *string   `json:"stop_reason,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.StopReason != nil {
		e.Str("stop_reason", *em.StopReason)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw payload when deserialized through NewEventFromJson
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = (*EventImpl)(nil)

type EventPartialCompletionStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventPartialCompletionStart {
	return &EventPartialCompletionStart{
		EventImpl: EventImpl{
			Type_:     EventTypeStart,
			Metadata_: metadata,
		},
	}
}

type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the accumulated text so far.
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{
			Type_:     EventTypePartialCompletion,
			Metadata_: metadata,
		},
		Delta:      delta,
		Completion: completion,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{
			Type_:     EventTypeFinal,
			Metadata_: metadata,
		},
		Text: text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl: EventImpl{
			Type_:     EventTypeError,
			Metadata_: metadata,
		},
		ErrorString: err.Error(),
	}
}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{
			Type_:     EventTypeInterrupt,
			Metadata_: metadata,
		},
		Text: text,
	}
}

// ToolCall is the event payload for a model-requested tool call.
type ToolCall struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Input string `json:"input" yaml:"input"`
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{
			Type_:     EventTypeToolCall,
			Metadata_: metadata,
		},
		ToolCall: toolCall,
	}
}

// ToolResult is the event payload for a locally executed tool result.
type ToolResult struct {
	ID     string `json:"id" yaml:"id"`
	Result string `json:"result" yaml:"result"`
}

type EventToolResult struct {
	EventImpl
	ToolResult ToolResult `json:"tool_result"`
}

func NewToolResultEvent(metadata EventMetadata, toolResult ToolResult) *EventToolResult {
	return &EventToolResult{
		EventImpl: EventImpl{
			Type_:     EventTypeToolResult,
			Metadata_: metadata,
		},
		ToolResult: toolResult,
	}
}

// NewEventFromJson decodes a serialized event back into its concrete type.
func NewEventFromJson(b []byte) (Event, error) {
	var e EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, errors.Wrapf(err, "could not unmarshal event: %s", string(b))
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeStart:
		ret := &EventPartialCompletionStart{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypePartialCompletion:
		ret := &EventPartialCompletion{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypeFinal:
		ret := &EventFinal{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypeToolCall:
		ret := &EventToolCall{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypeToolResult:
		ret := &EventToolResult{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypeError:
		ret := &EventError{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	case EventTypeInterrupt:
		ret := &EventInterrupt{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, errors.Wrapf(err, "could not decode event %s", e.Type_)
		}
		ret.payload = b
		return ret, nil
	}

	return &e, nil
}
