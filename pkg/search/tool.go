package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/go-go-golems/parley/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const summarizerPrompt = `You are a research assistant. Summarize the search results below into a concise answer to the user's query. Cite the source links you used.`

// SearchInput is the argument schema advertised to the model.
type SearchInput struct {
	Query string `json:"query" jsonschema:"description=The web search query"`
}

// NewSearchTool builds the web_search tool definition. When summarizer is
// non-nil, raw results are condensed through an extra model call; otherwise
// the formatted result list is returned as-is. Search failures surface as
// errors and reach the model as the tool result text, so it can react to
// them in conversation.
func NewSearchTool(provider Provider, summarizer engine.Engine) (*tools.ToolDefinition, error) {
	run := func(ctx context.Context, input SearchInput) (string, error) {
		query := strings.TrimSpace(input.Query)
		if query == "" {
			return "", errors.New("query is required")
		}

		results, err := provider.Search(ctx, query, 5)
		if err != nil {
			return "", errors.Wrap(err, "search failed")
		}

		formatted := FormatResults(results)
		if summarizer == nil {
			return formatted, nil
		}

		summary, err := summarize(ctx, summarizer, query, formatted)
		if err != nil {
			log.Warn().Err(err).Msg("summarizer failed, returning raw results")
			return formatted, nil
		}
		return summary, nil
	}

	return tools.NewToolFromFunc(
		"web_search",
		"Search the web for current information. Returns a summary of the top results with source links.",
		run,
	)
}

// FormatResults renders results as a numbered list.
func FormatResults(results []Result) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return sb.String()
}

func summarize(ctx context.Context, summarizer engine.Engine, query string, formatted string) (string, error) {
	messages := conversation.Conversation{
		conversation.NewChatMessage(conversation.RoleSystem, summarizerPrompt),
		conversation.NewChatMessage(conversation.RoleUser,
			fmt.Sprintf("Query: %s\n\nSearch results:\n%s", query, formatted)),
	}

	updated, err := summarizer.RunInference(ctx, messages)
	if err != nil {
		return "", err
	}

	last := updated.LastMessage()
	if last == nil {
		return "", errors.New("summarizer returned no messages")
	}
	content, ok := last.Content.(*conversation.ChatMessageContent)
	if !ok || content.Text == "" {
		return "", errors.New("summarizer returned no text")
	}
	return content.Text, nil
}
