package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/conversation"
	"github.com/haivivi/v2v/pkg/speech"
	"github.com/haivivi/v2v/pkg/voicechat"
)

var (
	replayFile  string
	replayQuiet bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded utterance script",
	Long: `Replay a recorded utterance script through the conversation controller.

Each utterance is captured as if spoken: its text is the transcript, an
error scripts a recognition failure, and an empty entry scripts silence.
The transcript is written to stderr and the final state (thread, sessions,
active session) to stdout in the selected format.

Script format (YAML or JSON):

  locale: ru-RU          # optional, overrides the configured locale
  session: "42"          # optional, continue an existing session
  utterances:
    - text: Привет
    - error: no-speech
    - text: Как дела?

Examples:
  v2v replay -f script.yaml
  v2v replay -f script.yaml -o json --query '.messages | length'
  cat script.json | v2v replay -f -`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "script file (YAML or JSON, - for stdin)")
	replayCmd.Flags().BoolVar(&replayQuiet, "quiet", false, "do not write the transcript")
	replayCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	var script speech.Script
	if err := cli.LoadRequest(replayFile, &script); err != nil {
		return err
	}
	if len(script.Utterances) == 0 {
		return fmt.Errorf("script %s has no utterances", replayFile)
	}

	s, err := resolveSettings()
	if err != nil {
		return err
	}
	s.Recognizer = "script"
	setIf(&s.Locale, script.Locale)

	log := cmd.ErrOrStderr()
	if replayQuiet {
		log = io.Discard
	}
	caps, err := openCapabilities(s, nil, &script, log)
	if err != nil {
		return err
	}
	defer caps.Close()
	rec, ok := caps.Recognizer.(*speech.ScriptRecognizer)
	if !ok {
		return fmt.Errorf("unexpected recognizer %T", caps.Recognizer)
	}

	ui := newTranscript(log, styles())
	ctrl, err := voicechat.New(voicechat.Config{
		Backend:    newClient(s),
		Recognizer: rec,
		Speaker:    caps.Speaker,
		Locale:     s.Locale,
		Logger:     slog.Default(),
		OnChange:   ui.update,
		OnNotice: func(n voicechat.Notice) {
			if n.Kind == voicechat.CapabilityUnavailable && !n.Blocking {
				// The speaker is optional for a replay.
				slog.Debug("replay notice", "kind", n.Kind, "message", n.Message)
				return
			}
			ui.notice(n)
		},
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmdContext(cmd)
	ctrl.Start(ctx)
	if script.Session != "" {
		if err := ctrl.LoadSession(ctx, conversation.SessionID(script.Session)); err != nil {
			return err
		}
	}

	for rec.Remaining() > 0 {
		if err := ctrl.StartListening(); err != nil {
			return fmt.Errorf("utterance %d: %w", len(script.Utterances)-rec.Remaining()+1, err)
		}
		ctrl.Wait()
	}
	speech.Wait(caps.Speaker)

	return cli.Output(ctrl.Snapshot(), outputOptions(cmd))
}
