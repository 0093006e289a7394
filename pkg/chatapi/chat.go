package chatapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/haivivi/v2v/pkg/conversation"
)

// FallbackReply is the reply text used when a successful response carries
// no reply.
const FallbackReply = "Извините, произошла ошибка"

// Reply is the backend's answer to one user message.
type Reply struct {
	// Text is the assistant reply.
	Text string `json:"response" yaml:"response"`

	// SessionID is the session the message belongs to. For a message sent
	// without a session it is the id the backend allocated.
	SessionID conversation.SessionID `json:"session_id" yaml:"session_id"`
}

type chatRequest struct {
	Message   string                 `json:"message"`
	SessionID conversation.SessionID `json:"session_id"`
}

type chatResponse struct {
	Response  *string                `json:"response"`
	SessionID conversation.SessionID `json:"session_id"`
}

var errNoSessionID = errors.New("response lacks session_id")

// SendMessage sends one user message. An empty sessionID asks the backend
// to allocate a new session, whose id is returned in the reply. The
// returned Reply always has a SessionID.
func (c *Client) SendMessage(ctx context.Context, text string, sessionID conversation.SessionID) (Reply, error) {
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	var resp chatResponse
	err := c.doJSON(ctx, "chat", http.MethodPost, "/chat", chatRequest{Message: text, SessionID: sessionID}, &resp)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Text: FallbackReply, SessionID: resp.SessionID}
	if resp.Response != nil {
		reply.Text = *resp.Response
	}
	if reply.SessionID == "" {
		if sessionID == "" {
			return Reply{}, &Error{Op: "chat", StatusCode: http.StatusOK, Err: errNoSessionID}
		}
		reply.SessionID = sessionID
	}
	return reply, nil
}
