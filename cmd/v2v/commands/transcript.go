package commands

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/haivivi/v2v/pkg/chatapi"
	"github.com/haivivi/v2v/pkg/cli"
	"github.com/haivivi/v2v/pkg/conversation"
	"github.com/haivivi/v2v/pkg/speech"
	"github.com/haivivi/v2v/pkg/voicechat"
)

// transcript renders controller snapshots as an append-only terminal log.
// Snapshots may arrive out of order from concurrent turns; a snapshot of
// the same session with fewer messages than already printed is stale and
// skipped.
type transcript struct {
	mu      sync.Mutex
	w       io.Writer
	styles  cli.Styles
	session conversation.SessionID
	printed int
	state   voicechat.State
}

func newTranscript(w io.Writer, styles cli.Styles) *transcript {
	return &transcript{w: w, styles: styles}
}

func (t *transcript) update(s voicechat.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case s.Active.ID != t.session && (t.session != "" || len(s.Messages) < t.printed):
		// Switched to another session.
		t.session = s.Active.ID
		t.printed = 0
		fmt.Fprintln(t.w, t.styles.Title.Render(fmt.Sprintf("── сессия %s ──", s.Active.ID)))
	case s.Active.ID != t.session:
		// The backend assigned the provisional session.
		t.session = s.Active.ID
	}

	for _, m := range s.Messages[min(t.printed, len(s.Messages)):] {
		fmt.Fprintln(t.w, t.styles.Message(string(m.Role), m.Content))
	}
	t.printed = max(t.printed, len(s.Messages))

	if s.State != t.state {
		t.state = s.State
		if s.State == voicechat.Listening {
			fmt.Fprintln(t.w, t.styles.Status("слушаю"))
		}
	}
}

func (t *transcript) notice(n voicechat.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.Blocking {
		fmt.Fprintln(t.w, t.styles.AlertBox(n.Message))
		return
	}
	fmt.Fprintln(t.w, t.styles.NoticeLine(n.Message))
}

// describe explains an error returned by the controller for the terminal.
// Transport failures are already reported through notices.
func describe(err error) string {
	switch {
	case errors.Is(err, voicechat.ErrSessionPending):
		return "дождитесь ответа сервера"
	case errors.Is(err, voicechat.ErrSuperseded):
		return ""
	case errors.Is(err, chatapi.ErrEmptyMessage), errors.Is(err, speech.ErrUnavailable):
		return ""
	}
	if _, ok := chatapi.AsError(err); ok {
		return ""
	}
	return err.Error()
}
