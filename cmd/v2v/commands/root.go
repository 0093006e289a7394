package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	contextName  string
	configPath   string
	formatOutput string
	queryExpr    string

	// Settings overrides (highest precedence)
	baseURLFlag    string
	localeFlag     string
	recognizerFlag string
	speakerFlag    string
	plainOutput    bool
)

var rootCmd = &cobra.Command{
	Use:   "v2v",
	Short: "Voice-to-voice chat client",
	Long: `v2v - talk to a chat backend by voice.

Speech is captured by a recognizer, sent to the chat backend, and the
reply is shown in the conversation thread and spoken back. Conversations
are kept by the backend as sessions that can be listed, created and
switched between.

Configuration is stored in ~/.v2v/config.yaml (override with $V2V_CONFIG)
as a set of contexts, like kubectl. Settings resolve as:
flag > environment > context > defaults.

Examples:
  # Configure a backend
  v2v config add local --base-url http://localhost:8000/api --locale ru-RU

  # Chat in the terminal
  v2v chat

  # Replay a recorded script and print the final thread as JSON
  v2v replay -f script.yaml -o json --query '.messages'`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cmd.ErrOrStderr())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
	pf.StringVar(&configPath, "config", "", "config file (default: $V2V_CONFIG or ~/.v2v/config.yaml)")
	pf.StringVarP(&formatOutput, "format", "o", string(cli.FormatYAML), "output format: yaml, json, table, raw")
	pf.StringVarP(&queryExpr, "query", "q", "", "jq expression applied to the output")
	pf.StringVar(&baseURLFlag, "base-url", "", "chat backend API base URL")
	pf.StringVar(&localeFlag, "locale", "", "speech locale, e.g. ru-RU")
	pf.StringVar(&recognizerFlag, "recognizer", "", "speech recognizer backend")
	pf.StringVar(&speakerFlag, "speaker", "", "speech synthesis backend")
	pf.BoolVar(&plainOutput, "plain", false, "render the transcript without colors")
}

func setupLogging(w io.Writer) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// GetConfig loads the configuration file.
func GetConfig() (*cli.Config, error) {
	cfg, err := cli.LoadConfigWithPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	return cfg, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func outputOptions(cmd *cobra.Command) cli.OutputOptions {
	return cli.OutputOptions{
		Format: cli.OutputFormat(formatOutput),
		Query:  queryExpr,
		Writer: cmd.OutOrStdout(),
	}
}

func styles() cli.Styles {
	if plainOutput {
		return cli.PlainStyles()
	}
	return cli.NewStyles(cli.DefaultTheme)
}
