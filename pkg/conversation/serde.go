package conversation

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// transcriptEntry is the flat YAML representation of a message, used when
// rendering a transcript for display or for --output yaml.
type transcriptEntry struct {
	Type   string `yaml:"type"`
	Role   string `yaml:"role,omitempty"`
	Text   string `yaml:"text,omitempty"`
	ToolID string `yaml:"toolID,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Input  string `yaml:"input,omitempty"`
	Result string `yaml:"result,omitempty"`
	Time   string `yaml:"time"`
}

// MarshalYAML renders the conversation as a list of flat entries.
func MarshalYAML(messages Conversation) ([]byte, error) {
	entries := make([]transcriptEntry, 0, len(messages))
	for _, msg := range messages {
		entry := transcriptEntry{
			Type: string(msg.Content.ContentType()),
			Time: msg.Time.Format("2006-01-02 15:04:05"),
		}
		switch content := msg.Content.(type) {
		case *ChatMessageContent:
			entry.Role = string(content.Role)
			entry.Text = content.Text
		case *ToolUseContent:
			entry.ToolID = content.ToolID
			entry.Name = content.Name
			entry.Input = string(content.Input)
		case *ToolResultContent:
			entry.ToolID = content.ToolID
			entry.Name = content.Name
			entry.Result = content.Result
		}
		entries = append(entries, entry)
	}
	return yaml.Marshal(entries)
}

// PrintConversation writes a human-readable rendering of the transcript,
// one numbered line per message, long texts elided.
func PrintConversation(w io.Writer, messages Conversation) error {
	for i, msg := range messages {
		view := msg.Content.View()
		if len(view) > 120 {
			view = view[:120] + "..."
		}
		view = strings.ReplaceAll(view, "\n", " ")
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, view); err != nil {
			return err
		}
	}
	return nil
}
