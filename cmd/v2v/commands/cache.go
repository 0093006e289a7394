package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/speech"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the synthesized speech cache",
	Long: `Inspect or clear the synthesized speech cache used by the openai
speaker. The cache lives in cache_dir (default: cache/tts next to the
config file).

Examples:
  v2v cache stats
  v2v cache clear`,
}

// cacheStats is the output of "cache stats".
type cacheStats struct {
	Dir     string `json:"dir" yaml:"dir"`
	Entries int    `json:"entries" yaml:"entries"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
	Size    string `json:"size" yaml:"size"`
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number and size of cached utterances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		stats := cacheStats{Dir: s.CacheDir, Size: cli.FormatBytes(0)}
		if cacheExists(s) {
			store, err := openCache(s)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, size, err := speech.NewAudioCache(store).Stats(cmdContext(cmd))
			if err != nil {
				return err
			}
			stats.Entries, stats.Bytes, stats.Size = entries, size, cli.FormatBytes(size)
		}
		return cli.Output(stats, outputOptions(cmd))
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached utterances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		if !cacheExists(s) {
			cli.PrintInfo(cmd.OutOrStdout(), "Cache is empty")
			return nil
		}
		store, err := openCache(s)
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := speech.NewAudioCache(store).Purge(cmdContext(cmd))
		if err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "Removed %d cached utterances", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
