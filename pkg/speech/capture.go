package speech

import (
	"context"
	"sync"
)

// capture tracks the in-progress Listen of a recognizer so that Stop can
// abort it. Starting a new capture aborts the previous one, so a recognizer
// never has more than one active capture.
type capture struct {
	mu     sync.Mutex
	active *captureToken
}

type captureToken struct {
	cancel context.CancelFunc
}

// begin starts a capture bound to parent. The returned done func must be
// called when Listen returns.
func (c *capture) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	tok := &captureToken{cancel: cancel}

	c.mu.Lock()
	if c.active != nil {
		c.active.cancel()
	}
	c.active = tok
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		if c.active == tok {
			c.active = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

// stop aborts the active capture, if any.
func (c *capture) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
}

// listening reports whether a capture is in progress.
func (c *capture) listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}
