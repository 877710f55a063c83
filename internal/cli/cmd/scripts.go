package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	scriptsJSON  bool
	scriptsFile  string
	scriptsStdin bool
)

var scriptsCmd = &cobra.Command{
	Use:     "scripts",
	Aliases: []string{"snippets"},
	Short:   "Manage saved snippets",
	Long: `List, show, save and delete named snippets.

Snippets live in a JSON file next to the config (scripts_path). Type one with
'keytyper type --script NAME'.`,
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snippet names",
	Args:  cobra.NoArgs,
	RunE:  runScriptsList,
}

var scriptsGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a snippet",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsGet,
}

var scriptsPutCmd = &cobra.Command{
	Use:   "put NAME [text...]",
	Short: "Save a snippet, replacing any existing one",
	Long: `Save a snippet under NAME. The body comes from the remaining arguments,
--file or --stdin.

Examples:
  keytyper scripts put greeting "مرحبا بكم"
  keytyper scripts put signature --file ~/signature.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScriptsPut,
}

var scriptsDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a snippet",
	Args:    cobra.ExactArgs(1),
	RunE:    runScriptsDelete,
}

func init() {
	rootCmd.AddCommand(scriptsCmd)
	scriptsCmd.AddCommand(scriptsListCmd, scriptsGetCmd, scriptsPutCmd, scriptsDeleteCmd)
	scriptsListCmd.Flags().BoolVar(&scriptsJSON, "json", false, "print names and bodies as JSON")
	scriptsPutCmd.Flags().StringVarP(&scriptsFile, "file", "f", "", "read the body from a file")
	scriptsPutCmd.Flags().BoolVar(&scriptsStdin, "stdin", false, "read the body from standard input")
}

func runScriptsList(cmd *cobra.Command, _ []string) error {
	st := GetApp().Store()
	names := st.List()

	out := cmd.OutOrStdout()
	if scriptsJSON {
		all := make(map[string]string, len(names))
		for _, name := range names {
			body, err := st.Get(name)
			if err != nil {
				return err
			}
			all[name] = body
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	if len(names) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no snippets in %s\n", st.Path())
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func runScriptsGet(cmd *cobra.Command, args []string) error {
	body, err := GetApp().Store().Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return nil
}

func runScriptsPut(cmd *cobra.Command, args []string) error {
	name, rest := args[0], args[1:]

	var body string
	switch {
	case scriptsFile != "" && (scriptsStdin || len(rest) > 0), scriptsStdin && len(rest) > 0:
		return fmt.Errorf("use only one of text arguments, --file or --stdin")
	case scriptsFile != "":
		data, err := os.ReadFile(scriptsFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", scriptsFile, err)
		}
		body = string(data)
	case scriptsStdin:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		body = strings.TrimSuffix(string(data), "\n")
	default:
		body = strings.Join(rest, " ")
	}

	if err := GetApp().Store().Put(name, body); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved %q\n", strings.TrimSpace(name))
	return nil
}

func runScriptsDelete(cmd *cobra.Command, args []string) error {
	if err := GetApp().Store().Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "deleted %q\n", args[0])
	return nil
}
