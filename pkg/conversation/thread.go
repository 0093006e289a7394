package conversation

import (
	"slices"
	"sync"
)

// Thread is the ordered message history of the active session. Messages are
// only ever appended; the whole thread is replaced when the active session
// changes.
type Thread struct {
	mu       sync.RWMutex
	messages []Message
}

// NewThread returns an empty thread.
func NewThread() *Thread {
	return &Thread{}
}

// Append adds msg to the end of the thread.
func (t *Thread) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// Replace discards the current history and installs msgs.
func (t *Thread) Replace(msgs []Message) {
	cp := slices.Clone(msgs)
	t.mu.Lock()
	t.messages = cp
	t.mu.Unlock()
}

// Reset empties the thread.
func (t *Thread) Reset() {
	t.Replace(nil)
}

// Messages returns a copy of the history in append order.
func (t *Thread) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.messages)
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message, if any.
func (t *Thread) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
