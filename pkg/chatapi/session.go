package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/haivivi/v2v/pkg/conversation"
)

// ListSessions returns the sessions stored by the backend. Both a bare JSON
// array and {"sessions": [...]} are accepted.
func (c *Client) ListSessions(ctx context.Context) ([]conversation.Session, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "list sessions", http.MethodGet, "/session", nil, &raw); err != nil {
		return nil, err
	}

	var sessions []conversation.Session
	var err error
	if b := bytes.TrimSpace(raw); len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Sessions []conversation.Session `json:"sessions"`
		}
		err = json.Unmarshal(b, &wrapped)
		sessions = wrapped.Sessions
	} else {
		err = json.Unmarshal(b, &sessions)
	}
	if err != nil {
		return nil, &Error{Op: "list sessions", StatusCode: http.StatusOK, Err: err}
	}
	return sessions, nil
}

// CreateSession asks the backend for a new, empty session.
func (c *Client) CreateSession(ctx context.Context) (conversation.Session, error) {
	var s conversation.Session
	if err := c.doJSON(ctx, "create session", http.MethodPost, "/session", struct{}{}, &s); err != nil {
		return conversation.Session{}, err
	}
	if s.ID == "" {
		return conversation.Session{}, &Error{Op: "create session", StatusCode: http.StatusOK, Err: errNoID}
	}
	return s, nil
}

var errNoID = errors.New("response lacks id")

// GetSession returns the message history of a session in order.
func (c *Client) GetSession(ctx context.Context, id conversation.SessionID) ([]conversation.Message, error) {
	var resp struct {
		Messages []conversation.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, "get session", http.MethodGet, "/session/"+url.PathEscape(id.String()), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, "health", http.MethodGet, "", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return &Error{Op: "health", StatusCode: http.StatusOK, Message: "status " + resp.Status}
	}
	return nil
}
