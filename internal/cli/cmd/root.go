// Package cmd provides Cobra CLI commands for keytyper.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keytyper/internal/cli"
)

var (
	app        *cli.App
	configPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "keytyper",
		Short: "Type text into the focused window",
		Long: `keytyper types text into whatever window has focus.

Latin text is sent one character or one word at a time. Arabic and other
right-to-left text is pasted through the clipboard, word by word or in one
go. Text can come from the command line, a file, stdin, or a saved snippet.

While a session runs, the pause and stop hotkeys from the config file work
globally, and Ctrl+C stops typing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}

			var err error
			app, err = cli.NewApp(cli.Options{ConfigPath: configPath, LogLevel: logLevel})
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/keytyper/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}
