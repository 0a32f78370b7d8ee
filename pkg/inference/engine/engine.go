package engine

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/pkg/errors"
)

// Engine runs one decision step: it sends the full conversation to a
// language model and returns the conversation with the model's reply
// appended. A reply is exactly one logical assistant turn: at most one
// assistant text message plus zero or more tool-use messages.
//
// Engines handle provider-specific logic; events are published through all
// registered EventSinks during inference.
type Engine interface {
	RunInference(ctx context.Context, messages conversation.Conversation) (conversation.Conversation, error)
}

// ErrModelUnavailable marks a failed or timed-out model call. It is
// transient: the caller may retry the whole decision step. Engines wrap the
// provider error, so errors.Is works across the boundary.
var ErrModelUnavailable = errors.New("model unavailable")
