package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keytyper/pkg/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Show the effective configuration or write a default config file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	Long: `Print the configuration after defaults and KEYTYPER_* environment
overrides are applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	app := GetApp()
	fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", app.ConfigPath)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(app.Config)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := GetApp().ConfigPath
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
