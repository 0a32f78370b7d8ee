package cmds

import (
	"os"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/openai"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/go-go-golems/parley/pkg/search"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	input "github.com/tcnksm/go-input"
)

// loadStepSettings builds settings from flags and environment. A missing
// OpenAI key is prompted for interactively when stdin is a terminal.
func loadStepSettings() (*settings.StepSettings, error) {
	stepSettings, err := settings.NewStepSettingsFromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if stepSettings.API.APIKey == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		ui := &input.UI{Writer: os.Stderr, Reader: os.Stdin}
		key, err := ui.Ask("OpenAI API key", &input.Options{
			Required:  true,
			Mask:      true,
			HideOrder: true,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to read API key")
		}
		stepSettings.API.APIKey = key
	}

	return stepSettings, nil
}

// newSearchProvider prefers Google Custom Search when credentials are
// present and falls back to scraping DuckDuckGo otherwise.
func newSearchProvider(stepSettings *settings.StepSettings) search.Provider {
	if stepSettings.Search.GoogleAPIKey != "" && stepSettings.Search.GoogleCSEID != "" {
		provider, err := search.NewGoogleProvider(stepSettings.Search)
		if err == nil {
			return provider
		}
		log.Warn().Err(err).Msg("failed to set up Google search, falling back to DuckDuckGo")
	}
	return search.NewDuckDuckGoProvider()
}

// buildSession assembles the engine, tool registry and chat session. The
// search tool summarizes results through a second, sink-less engine so its
// internal model call does not interleave with the streamed answer.
func buildSession(stepSettings *settings.StepSettings, engineOptions ...engine.Option) (*chat.Session, error) {
	summarizer, err := openai.NewOpenAIEngine(stepSettings)
	if err != nil {
		return nil, err
	}

	registry := tools.NewInMemoryToolRegistry()
	searchTool, err := search.NewSearchTool(newSearchProvider(stepSettings), summarizer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search tool")
	}
	if err := registry.RegisterTool(searchTool.Name, *searchTool); err != nil {
		return nil, err
	}

	toolConfig := tools.NewToolConfig().WithMaxParallelTools(4)

	eng, err := openai.NewOpenAIEngine(stepSettings, engineOptions...)
	if err != nil {
		return nil, err
	}
	eng.WithTools(registry, toolConfig)

	session := chat.NewSession(eng, registry,
		chat.WithSystemPrompt(viper.GetString("system-prompt")),
		chat.WithToolConfig(toolConfig),
	)
	return session, nil
}
