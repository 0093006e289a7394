// Package conversation holds the client-side model of a voice chat: the
// ordered message thread of the active session and the registry of known
// sessions.
//
// Both Thread and Registry are safe for concurrent readers. Writers are
// expected to be serialized by a single owner (the voicechat controller).
package conversation

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UnmarshalJSON rejects unknown roles so a malformed history cannot slip
// into a thread.
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !Role(s).Valid() {
		return fmt.Errorf("conversation: unknown role %q", s)
	}
	*r = Role(s)
	return nil
}

// Message is a single entry in a thread. Messages are values and never
// change once appended.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// UserMessage returns a message authored by the user.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns a message authored by the assistant.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
