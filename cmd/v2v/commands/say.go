package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/speech"
)

var sayOutputFile string

// synthesizer is implemented by speakers that can render audio to bytes.
type synthesizer interface {
	Synthesize(ctx context.Context, text, locale string) ([]byte, error)
}

var sayCmd = &cobra.Command{
	Use:   "say <text>...",
	Short: "Speak text with the configured speaker",
	Long: `Speak text with the configured speech synthesis backend.

With --output the audio is written to a file instead of played; this
needs a speaker that renders audio (openai). Synthesized audio is cached,
so saying the same phrase again does not call the API.

Examples:
  v2v say Привет
  v2v say --speaker command --locale en-US "Hello there"
  v2v say --speaker openai -O hello.mp3 Привет`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return fmt.Errorf("nothing to say")
		}

		caps, _, err := openSpeaker(s, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer caps.Close()
		ctx := cmdContext(cmd)

		if sayOutputFile != "" {
			syn, ok := caps.Speaker.(synthesizer)
			if !ok {
				return fmt.Errorf("speaker %q cannot write audio files", s.Speaker)
			}
			audio, err := syn.Synthesize(ctx, text, s.Locale)
			if err != nil {
				return err
			}
			if err := os.WriteFile(sayOutputFile, audio, 0644); err != nil {
				return fmt.Errorf("failed to write audio: %w", err)
			}
			cli.PrintSuccess(cmd.ErrOrStderr(), "wrote %s (%s)", sayOutputFile, cli.FormatBytes(int64(len(audio))))
			return nil
		}

		if !caps.Speaker.Available() {
			return fmt.Errorf("speaker %q: %w", s.Speaker, speech.ErrUnavailable)
		}
		return caps.Speaker.Speak(ctx, text, s.Locale)
	},
}

func init() {
	sayCmd.Flags().StringVarP(&sayOutputFile, "output", "O", "", "write synthesized audio to a file")
	rootCmd.AddCommand(sayCmd)
}
