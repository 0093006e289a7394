package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/conversation"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session", "s"},
	Short:   "Manage backend sessions",
	Long: `List, create and inspect conversation sessions kept by the backend.

Examples:
  v2v sessions list -o table
  v2v sessions new
  v2v sessions show 42 -o json --query '.messages[].content'`,
}

// sessionList is the output of "sessions list".
type sessionList []conversation.Session

func (l sessionList) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.ID.String(), formatSessionTime(s)})
	}
	return []string{"ID", "CREATED"}, rows
}

// sessionDetail is the output of "sessions show".
type sessionDetail struct {
	ID       conversation.SessionID `json:"id" yaml:"id"`
	Messages []conversation.Message `json:"messages" yaml:"messages"`
}

func (d sessionDetail) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(d.Messages))
	for i, m := range d.Messages {
		rows = append(rows, []string{strconv.Itoa(i + 1), string(m.Role), oneLine(m.Content)})
	}
	return []string{"#", "ROLE", "CONTENT"}, rows
}

func formatSessionTime(s conversation.Session) string {
	return cli.FormatTime(s.CreatedAt.Time())
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 72 {
		return string(r[:71]) + "…"
	}
	return s
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		sessions, err := newClient(s).ListSessions(cmdContext(cmd))
		if err != nil {
			return err
		}
		return cli.Output(sessionList(sessions), outputOptions(cmd))
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		sess, err := newClient(s).CreateSession(cmdContext(cmd))
		if err != nil {
			return err
		}
		return cli.Output(sess, outputOptions(cmd))
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the messages of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSettings()
		if err != nil {
			return err
		}
		id := conversation.SessionID(args[0])
		msgs, err := newClient(s).GetSession(cmdContext(cmd), id)
		if err != nil {
			return err
		}
		return cli.Output(sessionDetail{ID: id, Messages: msgs}, outputOptions(cmd))
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
