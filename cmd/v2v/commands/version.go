package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/cmd/v2v/internal/build"
	"github.com/haivivi/v2v/pkg/cli"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("format") || queryExpr != "" {
			return cli.Output(build.Get(), outputOptions(cmd))
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, build.String())
		if IsVerbose() {
			info := build.Get()
			fmt.Fprintf(out, "  go:     %s\n", info.Go)
			if cfg, err := GetConfig(); err == nil {
				fmt.Fprintf(out, "  config: %s\n", cfg.Path())
			} else {
				fmt.Fprintf(out, "  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
