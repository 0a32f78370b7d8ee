package cmds

import (
	"context"
	"fmt"
	"os"

	"github.com/go-go-golems/parley/pkg/chat"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewAskCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a single question and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, yaml)")

	return cmd
}

func runAsk(cmd *cobra.Command, prompt string, output string) error {
	if output != "text" && output != "yaml" {
		return errors.Errorf("unsupported output format %s", output)
	}

	stepSettings, err := loadStepSettings()
	if err != nil {
		return err
	}

	engineOptions := []engine.Option{}
	var router *events.EventRouter
	if output == "text" {
		router, err = events.NewEventRouter()
		if err != nil {
			return err
		}
		defer func() {
			_ = router.Close()
		}()
		sink := events.NewWatermillSink(router.Publisher, "chat")
		router.AddHandler("chat", "chat", events.StepPrinterFunc("", os.Stdout))
		engineOptions = append(engineOptions, engine.WithSink(sink))
	}

	session, err := buildSession(stepSettings, engineOptions...)
	if err != nil {
		return err
	}

	eg := errgroup.Group{}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if router != nil {
		eg.Go(func() error {
			defer cancel()
			return router.Run(ctx)
		})
	}

	eg.Go(func() error {
		defer cancel()
		if router != nil {
			<-router.Running()
		}

		_, err := session.SendMessage(ctx, prompt)
		if err != nil {
			return err
		}

		if output == "yaml" {
			b, err := conversation.MarshalYAML(session.Manager().GetConversation())
			if err != nil {
				return err
			}
			fmt.Print(string(b))
			return nil
		}

		// the streaming printer already rendered the answer
		if text := chat.LastAssistantText(session.Manager().GetConversation()); text == "" {
			fmt.Println("(no answer)")
		}
		return nil
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
