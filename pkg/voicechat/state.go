package voicechat

import (
	"encoding/json"

	"github.com/haivivi/v2v/pkg/conversation"
)

// State is the interaction state of the controller.
type State int

const (
	// Idle means no capture is running and no reply is pending.
	Idle State = iota

	// Listening means the recognizer is capturing an utterance.
	Listening

	// AwaitingReply means at least one message has been sent and its reply
	// has not arrived yet.
	AwaitingReply
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case AwaitingReply:
		return "awaiting_reply"
	default:
		return "idle"
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "listening":
		*s = Listening
	case "awaiting_reply":
		*s = AwaitingReply
	default:
		*s = Idle
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalYAML implements yaml marshaling with the same names as JSON.
func (s State) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Snapshot is a consistent copy of the controller's observable state.
type Snapshot struct {
	State    State                      `json:"state" yaml:"state"`
	Messages []conversation.Message     `json:"messages" yaml:"messages"`
	Sessions []conversation.Session     `json:"sessions" yaml:"sessions"`
	Active   conversation.ActiveSession `json:"active" yaml:"active"`
}

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	// CapabilityUnavailable means a speech capability is missing on this
	// host.
	CapabilityUnavailable NoticeKind = iota + 1

	// RecognitionError means a capture failed mid-way.
	RecognitionError

	// TransportError means a session operation could not reach the
	// backend.
	TransportError
)

// String returns the string representation of the kind.
func (k NoticeKind) String() string {
	switch k {
	case CapabilityUnavailable:
		return "capability_unavailable"
	case RecognitionError:
		return "recognition_error"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Notice is a message for the user that is not part of the conversation.
// Blocking notices must be acknowledged before the user can continue (an
// alert); others are transient.
type Notice struct {
	Kind     NoticeKind
	Message  string
	Err      error
	Blocking bool
}

// User-facing notice texts.
const (
	MessageRecognitionUnavailable = "Распознавание речи не поддерживается на этом устройстве"
	MessageSynthesisUnavailable   = "Синтез речи не поддерживается на этом устройстве"
	MessageRecognitionFailed      = "Ошибка распознавания речи"
	MessageSessionCreateFailed    = "Не удалось создать сессию"
	MessageSessionLoadFailed      = "Не удалось загрузить сессию"
)

// ErrorReply is the assistant message appended when a chat request fails.
const ErrorReply = "Ошибка связи с сервером"
