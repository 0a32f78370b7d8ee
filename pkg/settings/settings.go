package settings

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// APISettings holds provider connection parameters.
type APISettings struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ChatSettings holds model parameters for the decision step.
type ChatSettings struct {
	Model             string   `yaml:"model"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxResponseTokens *int     `yaml:"max_response_tokens,omitempty"`
}

// SearchSettings holds credentials for the web search tool.
type SearchSettings struct {
	GoogleAPIKey string `yaml:"google_api_key"`
	GoogleCSEID  string `yaml:"google_cse_id"`
}

// ClientSettings carries session tracing identifiers that are attached to
// message metadata but never sent to the provider.
type ClientSettings struct {
	Project string `yaml:"project"`
	TraceID string `yaml:"trace_id"`
}

// StepSettings is the full configuration for one inference setup.
type StepSettings struct {
	API    *APISettings    `yaml:"api"`
	Chat   *ChatSettings   `yaml:"chat"`
	Search *SearchSettings `yaml:"search"`
	Client *ClientSettings `yaml:"client"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		API: &APISettings{
			BaseURL: "https://api.openai.com/v1",
			Timeout: 60 * time.Second,
		},
		Chat: &ChatSettings{
			Model: "gpt-4o-mini",
		},
		Search: &SearchSettings{},
		Client: &ClientSettings{},
	}
}

const (
	KeyOpenAIAPIKey  = "openai-api-key"
	KeyOpenAIBaseURL = "openai-base-url"
	KeyModel         = "model"
	KeyTemperature   = "temperature"
	KeyTimeout       = "timeout"
	KeyGoogleAPIKey  = "google-api-key"
	KeyGoogleCSEID   = "google-cse-id"
	KeyProject       = "project"
	KeyTraceID       = "trace-id"
)

// BindEnv wires the settings keys to their environment variables.
func BindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		KeyOpenAIAPIKey:  "OPENAI_API_KEY",
		KeyOpenAIBaseURL: "PARLEY_OPENAI_BASE_URL",
		KeyModel:         "PARLEY_MODEL",
		KeyGoogleAPIKey:  "GOOGLE_API_KEY",
		KeyGoogleCSEID:   "GOOGLE_CSE_ID",
		KeyProject:       "PARLEY_PROJECT",
		KeyTraceID:       "PARLEY_TRACE_ID",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return errors.Wrapf(err, "failed to bind %s", key)
		}
	}

	v.SetDefault(KeyOpenAIBaseURL, "https://api.openai.com/v1")
	v.SetDefault(KeyModel, "gpt-4o-mini")
	v.SetDefault(KeyTimeout, 60*time.Second)

	return nil
}

// NewStepSettingsFromViper builds StepSettings from bound configuration.
func NewStepSettingsFromViper(v *viper.Viper) (*StepSettings, error) {
	s := NewStepSettings()

	s.API.APIKey = v.GetString(KeyOpenAIAPIKey)
	s.API.BaseURL = v.GetString(KeyOpenAIBaseURL)
	if timeout := v.GetDuration(KeyTimeout); timeout > 0 {
		s.API.Timeout = timeout
	}

	s.Chat.Model = v.GetString(KeyModel)
	if v.IsSet(KeyTemperature) {
		temperature := v.GetFloat64(KeyTemperature)
		s.Chat.Temperature = &temperature
	}

	s.Search.GoogleAPIKey = v.GetString(KeyGoogleAPIKey)
	s.Search.GoogleCSEID = v.GetString(KeyGoogleCSEID)

	s.Client.Project = v.GetString(KeyProject)
	s.Client.TraceID = v.GetString(KeyTraceID)

	return s, nil
}

// Clone returns a deep copy, so per-call overrides never leak into the
// shared settings.
func (s *StepSettings) Clone() *StepSettings {
	clone := NewStepSettings()
	*clone.API = *s.API
	*clone.Chat = *s.Chat
	*clone.Search = *s.Search
	*clone.Client = *s.Client
	if s.Chat.Temperature != nil {
		temperature := *s.Chat.Temperature
		clone.Chat.Temperature = &temperature
	}
	if s.Chat.MaxResponseTokens != nil {
		maxTokens := *s.Chat.MaxResponseTokens
		clone.Chat.MaxResponseTokens = &maxTokens
	}
	return clone
}

// Metadata returns the session identifiers suitable for attaching to
// message metadata.
func (s *StepSettings) Metadata() map[string]interface{} {
	metadata := map[string]interface{}{}
	if s.Client.Project != "" {
		metadata["project"] = s.Client.Project
	}
	if s.Client.TraceID != "" {
		metadata["trace_id"] = s.Client.TraceID
	}
	return metadata
}
