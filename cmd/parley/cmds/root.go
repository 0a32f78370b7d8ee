package cmds

import (
	"os"

	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultSystemPrompt = "You are a helpful assistant. Use the web_search tool when the user asks about current events or facts you are unsure about."

func NewRootCmd() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "parley",
		Short: "Conversational assistant with tool calling and web search",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging(viper.GetString("log-level"))
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String(settings.KeyModel, "gpt-4o-mini", "model used for the decision step")
	flags.Float64(settings.KeyTemperature, 0, "sampling temperature")
	flags.Duration(settings.KeyTimeout, 0, "per-request timeout")
	flags.String("system-prompt", defaultSystemPrompt, "system prompt prepended to every request")

	if err := viper.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}
	if err := settings.BindEnv(viper.GetViper()); err != nil {
		return nil, err
	}

	rootCmd.AddCommand(NewChatCmd())
	rootCmd.AddCommand(NewAskCmd())

	return rootCmd, nil
}

func initLogging(level string) error {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %s", level)
	}
	zerolog.SetGlobalLevel(parsed)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}
