package settings

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepSettingsFromViper(t *testing.T) {
	v := viper.New()
	require.NoError(t, BindEnv(v))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PARLEY_OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CSE_ID", "cse-id")
	t.Setenv("PARLEY_PROJECT", "demo")
	t.Setenv("PARLEY_TRACE_ID", "trace-42")

	s, err := NewStepSettingsFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", s.API.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", s.API.BaseURL)
	assert.Equal(t, "g-key", s.Search.GoogleAPIKey)
	assert.Equal(t, "cse-id", s.Search.GoogleCSEID)
	assert.Equal(t, "demo", s.Client.Project)
	assert.Equal(t, "trace-42", s.Client.TraceID)
}

func TestDefaults(t *testing.T) {
	v := viper.New()
	require.NoError(t, BindEnv(v))

	s, err := NewStepSettingsFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", s.Chat.Model)
	assert.Equal(t, "https://api.openai.com/v1", s.API.BaseURL)
	assert.Equal(t, 60*time.Second, s.API.Timeout)
	assert.Nil(t, s.Chat.Temperature)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStepSettings()
	temperature := 0.7
	s.Chat.Temperature = &temperature

	clone := s.Clone()
	*clone.Chat.Temperature = 0.1
	clone.API.APIKey = "other"

	assert.Equal(t, 0.7, *s.Chat.Temperature)
	assert.Empty(t, s.API.APIKey)
}

func TestMetadata(t *testing.T) {
	s := NewStepSettings()
	assert.Empty(t, s.Metadata())

	s.Client.Project = "demo"
	s.Client.TraceID = "trace-1"
	metadata := s.Metadata()
	assert.Equal(t, "demo", metadata["project"])
	assert.Equal(t, "trace-1", metadata["trace_id"])
}
