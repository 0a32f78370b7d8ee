package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/inference/toolhelpers"
	"github.com/pkg/errors"
)

// Command is a reserved input line handled by the loop instead of the model.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandClear
	CommandHistory
)

// ParseCommand matches reserved commands case-insensitively.
func ParseCommand(line string) Command {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "q":
		return CommandQuit
	case "clear":
		return CommandClear
	case "history":
		return CommandHistory
	default:
		return CommandNone
	}
}

// Loop reads user input line by line and feeds it through the session.
type Loop struct {
	session *Session
	in      io.Reader
	out     io.Writer
	// Echo controls whether the final assistant message is printed by the
	// loop itself. Leave false when a streaming printer is attached.
	Echo bool
}

func NewLoop(session *Session, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		session: session,
		in:      in,
		out:     out,
	}
}

// Run processes input until EOF or a quit command. Transient errors are
// reported and the loop continues; a corrupted transcript terminates the
// session.
func (l *Loop) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(l.in)

	for {
		fmt.Fprint(l.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return errors.Wrap(err, "failed to read input")
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch ParseCommand(line) {
		case CommandQuit:
			fmt.Fprintln(l.out, "Goodbye!")
			return nil

		case CommandClear:
			l.session.Clear()
			fmt.Fprintln(l.out, "Conversation cleared.")
			continue

		case CommandHistory:
			messages := l.session.Manager().GetConversation()
			if len(messages) == 0 {
				fmt.Fprintln(l.out, "No messages yet.")
				continue
			}
			if err := conversation.PrintConversation(l.out, messages); err != nil {
				return err
			}
			continue
		}

		last, err := l.session.SendMessage(ctx, line)
		if err != nil {
			if errors.Is(err, toolhelpers.ErrMalformedState) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(l.out, "Something went wrong: %s\n", err)
			continue
		}

		if l.Echo && last != nil {
			if content, ok := last.Content.(*conversation.ChatMessageContent); ok {
				fmt.Fprintln(l.out, content.Text)
			}
		}
	}
}
