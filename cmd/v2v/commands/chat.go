package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/conversation"
	"github.com/haivivi/v2v/pkg/voicechat"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive voice chat",
	Long: `Start an interactive chat in the terminal.

Typed lines are sent as messages. /listen starts a capture with the
configured recognizer: with the line recognizer the next line is the
utterance, with the openai recognizer it is the path of an audio file.
Replies are shown and spoken with the configured speaker.

Commands:
  /listen       start a capture
  /stop         abort the capture
  /new          start a new session
  /sessions     list sessions
  /load <id>    switch to a session
  /help         show this help
  /quit         exit

Examples:
  v2v chat
  v2v chat --session 42
  v2v chat --speaker command --locale en-US`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session to continue")
	rootCmd.AddCommand(chatCmd)
}

const chatHelp = `/listen  /stop  /new  /sessions  /load <id>  /help  /quit`

func runChat(cmd *cobra.Command, args []string) error {
	s, err := resolveSettings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	st := styles()

	lines := make(chan string)
	caps, err := openCapabilities(s, lines, nil, out)
	if err != nil {
		return err
	}
	defer caps.Close()

	ui := newTranscript(out, st)
	ctrl, err := voicechat.New(voicechat.Config{
		Backend:    newClient(s),
		Recognizer: caps.Recognizer,
		Speaker:    caps.Speaker,
		Locale:     s.Locale,
		Logger:     slog.Default(),
		OnChange:   ui.update,
		OnNotice:   ui.notice,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmdContext(cmd)
	ctrl.Start(ctx)
	if chatSession != "" {
		if err := ctrl.LoadSession(ctx, conversation.SessionID(chatSession)); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, st.Help.Render(fmt.Sprintf("v2v · %s · %s · %s", s.BaseURL, s.Locale, chatHelp)))

	r := &repl{ctrl: ctrl, ui: ui, out: out, lines: lines}
	return r.run(ctx, cmd.InOrStdin())
}

type repl struct {
	ctrl  *voicechat.Controller
	ui    *transcript
	out   io.Writer
	lines chan<- string
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				break
			}
			continue
		}
		if r.ctrl.State() == voicechat.Listening {
			r.utter(ctx, line)
			continue
		}
		if line == "" {
			continue
		}
		if err := r.ctrl.Submit(line); err != nil {
			r.report(err)
			continue
		}
		r.ctrl.Wait()
	}
	r.ctrl.StopListening()
	r.ctrl.Wait()
	return scanner.Err()
}

// utter hands a line to the recognizer of the running capture.
func (r *repl) utter(ctx context.Context, line string) {
	select {
	case r.lines <- line:
	case <-ctx.Done():
		return
	}
	r.ctrl.Wait()
}

func (r *repl) command(ctx context.Context, line string) (quit bool) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/listen", "/l":
		if err := r.ctrl.StartListening(); err != nil {
			r.report(err)
		}
	case "/stop":
		r.ctrl.StopListening()
	case "/new":
		if _, err := r.ctrl.CreateSession(ctx); err != nil {
			r.report(err)
		}
	case "/sessions", "/ls":
		if err := r.ctrl.RefreshSessions(ctx); err != nil {
			slog.Warn("list sessions failed", "err", err)
		}
		snap := r.ctrl.Snapshot()
		if len(snap.Sessions) == 0 {
			fmt.Fprintln(r.out, r.ui.styles.Help.Render("нет сессий"))
		}
		for _, sess := range snap.Sessions {
			marker := " "
			if snap.Active.Is(sess.ID) {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %-8s %s\n", marker, sess.ID, formatSessionTime(sess))
		}
	case "/load":
		if arg == "" {
			fmt.Fprintln(r.out, r.ui.styles.NoticeLine("usage: /load <id>"))
			return false
		}
		if err := r.ctrl.LoadSession(ctx, conversation.SessionID(arg)); err != nil {
			r.report(err)
		}
	case "/help", "/?":
		fmt.Fprintln(r.out, r.ui.styles.Help.Render(chatHelp))
	default:
		fmt.Fprintln(r.out, r.ui.styles.NoticeLine("unknown command "+name+"; "+chatHelp))
	}
	return false
}

func (r *repl) report(err error) {
	if msg := describe(err); msg != "" {
		fmt.Fprintln(r.out, r.ui.styles.NoticeLine(msg))
	}
}
