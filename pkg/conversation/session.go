package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/haivivi/v2v/pkg/jsontime"
)

// SessionID is an opaque backend-assigned session identifier. The backend
// emits integers; the client keeps the textual form and never does
// arithmetic on it.
type SessionID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *SessionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("conversation: invalid session id %s", b)
	}
	*id = SessionID(n.String())
	return nil
}

// MarshalJSON emits canonical integers as JSON numbers, so the backend
// receives ids in the form it issued them, and everything else as strings.
func (id SessionID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String returns the identifier text.
func (id SessionID) String() string {
	return string(id)
}

// Session is a server-identified conversation.
type Session struct {
	ID        SessionID        `json:"id" yaml:"id"`
	CreatedAt jsontime.Lenient `json:"created_at" yaml:"created_at"`
}

// ActiveState describes whether and how a session is active.
type ActiveState int

const (
	// ActiveNone means no session is chosen.
	ActiveNone ActiveState = iota

	// ActiveProvisional means the first message has been sent without a
	// session and the backend has not yet allocated one.
	ActiveProvisional

	// ActiveAssigned means a backend session id is active.
	ActiveAssigned
)

// String returns the string representation of the state.
func (s ActiveState) String() string {
	switch s {
	case ActiveProvisional:
		return "provisional"
	case ActiveAssigned:
		return "assigned"
	default:
		return "none"
	}
}

// MarshalJSON implements json.Marshaler.
func (s ActiveState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalYAML implements yaml marshaling with the same names as JSON.
func (s ActiveState) MarshalYAML() (any, error) {
	return s.String(), nil
}

// ActiveSession points at the active session. ID is set only when State is
// ActiveAssigned.
type ActiveSession struct {
	State ActiveState `json:"state" yaml:"state"`
	ID    SessionID   `json:"id,omitempty" yaml:"id,omitempty"`
}

// Is reports whether id is the assigned active session.
func (a ActiveSession) Is(id SessionID) bool {
	return a.State == ActiveAssigned && a.ID == id
}
