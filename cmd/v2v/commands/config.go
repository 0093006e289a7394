package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts in the configuration file.

A context is a named backend and device setup: base URL, locale, speech
backends and their settings. The first context added becomes current.

Examples:
  v2v config add local --base-url http://localhost:8000/api --locale ru-RU
  v2v config use staging
  v2v config current
  v2v config set speaker command
  v2v config set -c staging openai.api_key sk-xxx
  v2v config get base_url
  v2v config view -o json`,
}

// contextList is the output of "config list".
type contextList struct {
	Current  string   `json:"current" yaml:"current"`
	Contexts []string `json:"contexts" yaml:"contexts"`
}

func (l contextList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l.Contexts))
	for _, name := range l.Contexts {
		current := ""
		if name == l.Current {
			current = "*"
		}
		rows = append(rows, []string{current, name})
	}
	return []string{"CURRENT", "NAME"}, rows
}

var configListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names := cfg.ListContexts()
		if len(names) == 0 && queryExpr == "" {
			cli.PrintInfo(cmd.OutOrStdout(), "No contexts configured. Create one with: v2v config add <name>")
			return nil
		}
		return cli.Output(contextList{Current: cfg.CurrentContext, Contexts: names}, outputOptions(cmd))
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a context",
	Long: `Add or replace a context. Settings are taken from the global flags
--base-url, --locale, --recognizer and --speaker; use "config set" for
the rest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("context name cannot be empty")
		}
		ctx := &cli.Context{
			BaseURL:    baseURLFlag,
			Locale:     localeFlag,
			Recognizer: recognizerFlag,
			Speaker:    speakerFlag,
		}
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q saved to %s", name, cfg.Path())
		return nil
	},
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Context %q deleted", args[0])
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Switched to context %q", args[0])
		return nil
	},
}

var configCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current context name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			return fmt.Errorf("no current context set")
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

// targetContext returns the context named by --context, else the current
// one.
func targetContext(cfg *cli.Config) (*cli.Context, error) {
	if contextName != "" {
		return cfg.GetContext(contextName)
	}
	return cfg.GetCurrentContext()
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a context setting",
	Long: "Set a setting of the current context (or --context).\n\nKeys: " +
		strings.Join(cli.ContextKeys, ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx, err := targetContext(cfg)
		if err != nil {
			return err
		}
		if err := ctx.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "%s.%s updated", ctx.Name, args[0])
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a context setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx, err := targetContext(cfg)
		if err != nil {
			return err
		}
		v, err := ctx.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the current context (or --context) with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx, err := targetContext(cfg)
		if err != nil {
			return err
		}
		return cli.Output(ctx.Masked(), outputOptions(cmd))
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configDeleteCmd)
	configCmd.AddCommand(configUseCmd)
	configCmd.AddCommand(configCurrentCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}
