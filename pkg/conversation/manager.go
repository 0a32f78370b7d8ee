// Package conversation provides the transcript model for a chat session.
//
// A Manager owns the transcript of a single session. The transcript is a
// strictly linear, append-only sequence of messages: user input, assistant
// output, tool calls and tool results. Messages are never mutated after
// creation; the only permitted change to the transcript is appending, or
// resetting it wholesale through Clear.
package conversation

import "sync"

// Manager defines the interface for transcript management operations.
type Manager interface {
	GetConversation() Conversation
	AppendMessages(msgs ...*Message)
	Len() int
	Clear()
}

type ManagerImpl struct {
	mu       sync.Mutex
	messages Conversation
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(messages...)
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{}

	for _, option := range options {
		option(ret)
	}

	return ret
}

// GetConversation returns a copy of the message slice. The messages
// themselves are shared; callers must treat them as immutable.
func (m *ManagerImpl) GetConversation() Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make(Conversation, len(m.messages))
	copy(ret, m.messages)
	return ret
}

func (m *ManagerImpl) AppendMessages(msgs ...*Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msgs...)
}

func (m *ManagerImpl) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.messages)
}

// Clear resets the transcript to an empty sequence.
func (m *ManagerImpl) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
}
