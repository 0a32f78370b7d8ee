package tools

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnknownTool marks a tool call whose name is not registered. It is
// fatal to the current turn: no call in the batch is executed.
var ErrUnknownTool = errors.New("unknown tool")

// ToolRegistry manages the set of tools available to an inference run.
type ToolRegistry interface {
	RegisterTool(name string, tool ToolDefinition) error
	UnregisterTool(name string) error
	GetTool(name string) (*ToolDefinition, error)
	HasTool(name string) bool
	ListTools() []ToolDefinition
	Count() int
}

// InMemoryToolRegistry is a thread-safe map-backed registry.
type InMemoryToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

var _ ToolRegistry = (*InMemoryToolRegistry)(nil)

func NewInMemoryToolRegistry() *InMemoryToolRegistry {
	return &InMemoryToolRegistry{
		tools: make(map[string]ToolDefinition),
	}
}

func (r *InMemoryToolRegistry) RegisterTool(name string, tool ToolDefinition) error {
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tool.Name = name
	r.tools[name] = tool
	return nil
}

func (r *InMemoryToolRegistry) UnregisterTool(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return errors.Wrapf(ErrUnknownTool, "%s", name)
	}
	delete(r.tools, name)
	return nil
}

func (r *InMemoryToolRegistry) GetTool(name string) (*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "%s", name)
	}
	return &tool, nil
}

func (r *InMemoryToolRegistry) HasTool(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.tools[name]
	return ok
}

// ListTools returns the registered tools sorted by name, so request
// payloads are deterministic.
func (r *InMemoryToolRegistry) ListTools() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func (r *InMemoryToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
