package tools

import "time"

// ToolChoice controls whether the model may, must, or must not call tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceRequired ToolChoice = "required"
)

// ToolErrorHandling selects what happens when a tool call fails at runtime.
type ToolErrorHandling string

const (
	// ToolErrorContinue reports the failure back to the model as the tool
	// result and lets the conversation continue.
	ToolErrorContinue ToolErrorHandling = "continue"
	// ToolErrorAbort stops the loop on the first failing call.
	ToolErrorAbort ToolErrorHandling = "abort"
)

// ToolConfig controls tool advertisement and execution during an
// inference loop.
type ToolConfig struct {
	Enabled           bool
	ToolChoice        ToolChoice
	MaxIterations     int
	ExecutionTimeout  time.Duration
	MaxParallelTools  int
	ToolErrorHandling ToolErrorHandling
	AllowedTools      []string
}

func NewToolConfig() *ToolConfig {
	return &ToolConfig{
		Enabled:           true,
		ToolChoice:        ToolChoiceAuto,
		MaxIterations:     5,
		ExecutionTimeout:  30 * time.Second,
		MaxParallelTools:  1,
		ToolErrorHandling: ToolErrorContinue,
	}
}

func (tc *ToolConfig) WithToolChoice(choice ToolChoice) *ToolConfig {
	tc.ToolChoice = choice
	return tc
}

func (tc *ToolConfig) WithMaxIterations(n int) *ToolConfig {
	tc.MaxIterations = n
	return tc
}

func (tc *ToolConfig) WithExecutionTimeout(d time.Duration) *ToolConfig {
	tc.ExecutionTimeout = d
	return tc
}

func (tc *ToolConfig) WithMaxParallelTools(n int) *ToolConfig {
	tc.MaxParallelTools = n
	return tc
}

func (tc *ToolConfig) WithToolErrorHandling(h ToolErrorHandling) *ToolConfig {
	tc.ToolErrorHandling = h
	return tc
}

func (tc *ToolConfig) WithAllowedTools(names []string) *ToolConfig {
	tc.AllowedTools = names
	return tc
}

// IsToolAllowed reports whether a tool may be advertised to the model.
// An empty AllowedTools list allows everything.
func (tc *ToolConfig) IsToolAllowed(name string) bool {
	if len(tc.AllowedTools) == 0 {
		return true
	}
	for _, allowed := range tc.AllowedTools {
		if allowed == name {
			return true
		}
	}
	return false
}
