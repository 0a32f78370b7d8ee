package cmds

import (
	"context"
	"fmt"
	"os"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session. The assistant keeps the conversation
in memory and can search the web when needed.

Reserved commands: quit/exit/q end the session, clear resets the
conversation, history prints the transcript.`,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	stepSettings, err := loadStepSettings()
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter()
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	sink := events.NewWatermillSink(router.Publisher, "chat")
	router.AddHandler("chat", "chat", events.StepPrinterFunc("", os.Stdout))

	session, err := buildSession(stepSettings, engine.WithSink(sink))
	if err != nil {
		return err
	}

	fmt.Println("Type a message to get started, or 'quit' to leave.")

	eg := errgroup.Group{}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eg.Go(func() error {
		defer cancel()
		return router.Run(ctx)
	})

	eg.Go(func() error {
		defer cancel()
		<-router.Running()

		loop := chat.NewLoop(session, os.Stdin, os.Stdout)
		return loop.Run(ctx)
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
