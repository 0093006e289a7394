// Package voicechat implements the conversation session controller of the
// voice chat client.
//
// The Controller ties together a speech Recognizer, a chat Backend, the
// message thread of the active session, the registry of known sessions and
// a speech Speaker:
//
//	StartListening → Recognizer.Listen → user message → Backend.SendMessage
//	  → assistant message (+ session reconciliation) → Speaker.Speak
//
// All mutations are serialized under one lock. Blocking work (captures,
// backend calls) runs outside the lock and re-enters with a token; results
// whose token is stale are discarded:
//
//   - a listen token, invalidated by StopListening, so a late transcript is
//     dropped;
//   - a session epoch, advanced when a session switch is applied, so a chat
//     reply for the previous session is dropped;
//   - a switch sequence, advanced by every CreateSession and LoadSession, so
//     only the latest switch is applied.
package voicechat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/haivivi/v2v/pkg/chatapi"
	"github.com/haivivi/v2v/pkg/conversation"
	"github.com/haivivi/v2v/pkg/jsontime"
	"github.com/haivivi/v2v/pkg/speech"
)

var (
	// ErrSessionPending is returned when a new turn is requested while the
	// backend is still allocating the session for the first message.
	ErrSessionPending = errors.New("voicechat: session allocation pending")

	// ErrSuperseded is returned by CreateSession and LoadSession when a
	// later switch was requested before this one completed.
	ErrSuperseded = errors.New("voicechat: superseded by a later session switch")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("voicechat: controller closed")
)

// Backend is the chat service. *chatapi.Client implements it.
type Backend interface {
	SendMessage(ctx context.Context, text string, sessionID conversation.SessionID) (chatapi.Reply, error)
	ListSessions(ctx context.Context) ([]conversation.Session, error)
	CreateSession(ctx context.Context) (conversation.Session, error)
	GetSession(ctx context.Context, id conversation.SessionID) ([]conversation.Message, error)
}

var _ Backend = (*chatapi.Client)(nil)

// Config configures a Controller.
type Config struct {
	// Backend is required.
	Backend Backend

	// Recognizer and Speaker may be nil, which is treated as unavailable.
	Recognizer speech.Recognizer
	Speaker    speech.Speaker

	// Locale for recognition and synthesis. Defaults to speech.DefaultLocale.
	Locale string

	Logger *slog.Logger

	// Now supplies fallback creation times for sessions first seen in a
	// chat reply. Defaults to time.Now.
	Now func() time.Time

	// OnChange is called with a fresh snapshot after every mutation. It is
	// called without the controller lock held and may call back into the
	// controller.
	OnChange func(Snapshot)

	// OnNotice is called for user-facing notices.
	OnNotice func(Notice)
}

// Controller is the conversation session controller.
type Controller struct {
	backend    Backend
	recognizer speech.Recognizer
	speaker    speech.Speaker
	locale     string
	log        *slog.Logger
	now        func() time.Time
	onChange   func(Snapshot)
	onNotice   func(Notice)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	thread     *conversation.Thread
	registry   *conversation.Registry
	listening  bool
	listenTok  uint64
	stopListen context.CancelFunc
	inflight   int
	epoch      uint64
	switchSeq  uint64
	closed     bool

	speakOnce sync.Once
}

// turn is one user message on its way to the backend.
type turn struct {
	text        string
	sessionID   conversation.SessionID
	provisional bool
	epoch       uint64
}

// New creates a controller with an empty thread and session list. Call
// Start to load the session list.
func New(cfg Config) (*Controller, error) {
	if cfg.Backend == nil {
		return nil, errors.New("voicechat: backend is required")
	}
	c := &Controller{
		backend:    cfg.Backend,
		recognizer: cfg.Recognizer,
		speaker:    cfg.Speaker,
		locale:     cfg.Locale,
		log:        cfg.Logger,
		now:        cfg.Now,
		onChange:   cfg.OnChange,
		onNotice:   cfg.OnNotice,
		thread:     conversation.NewThread(),
		registry:   conversation.NewRegistry(),
	}
	if c.locale == "" {
		c.locale = speech.DefaultLocale
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Start loads the session list. A listing failure is logged and otherwise
// ignored: the list stays empty and chatting still works.
func (c *Controller) Start(ctx context.Context) {
	if err := c.RefreshSessions(ctx); err != nil {
		c.log.Warn("voicechat: list sessions failed", "err", err)
	}
}

// Locale returns the locale used for speech.
func (c *Controller) Locale() string {
	return c.locale
}

// State returns the current interaction state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.listening:
		return Listening
	case c.inflight > 0:
		return AwaitingReply
	default:
		return Idle
	}
}

// Snapshot returns a consistent copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.stateLocked(),
		Messages: c.thread.Messages(),
		Sessions: c.registry.Sessions(),
		Active:   c.registry.Active(),
	}
}

// StartListening begins a capture. It is a no-op while already listening.
// If the recognizer is unavailable a blocking notice is raised,
// speech.ErrUnavailable is returned and the state does not change.
func (c *Controller) StartListening() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	if c.registry.Active().State == conversation.ActiveProvisional {
		c.mu.Unlock()
		return ErrSessionPending
	}
	if c.recognizer == nil || !c.recognizer.Available() {
		c.mu.Unlock()
		c.notify(Notice{
			Kind:     CapabilityUnavailable,
			Message:  MessageRecognitionUnavailable,
			Err:      speech.ErrUnavailable,
			Blocking: true,
		})
		return speech.ErrUnavailable
	}

	c.listening = true
	c.listenTok++
	tok := c.listenTok
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopListen = cancel
	snap := c.snapshotLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.publish(snap)
	go func() {
		defer c.wg.Done()
		res := c.recognizer.Listen(ctx, speech.ListenOptions{Locale: c.locale})
		c.handleResult(tok, res)
	}()
	return nil
}

// StopListening aborts the current capture; any partial result is
// discarded. It is a no-op when not listening.
func (c *Controller) StopListening() {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return
	}
	c.endListenLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.recognizer.Stop()
	c.publish(snap)
}

// endListenLocked leaves the Listening state and invalidates the listen
// token.
func (c *Controller) endListenLocked() {
	c.listening = false
	c.listenTok++
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
}

func (c *Controller) handleResult(tok uint64, res speech.Result) {
	c.mu.Lock()
	if !c.listening || tok != c.listenTok {
		c.mu.Unlock()
		c.log.Debug("voicechat: discard stale recognition result", "result", res.String())
		return
	}
	c.endListenLocked()

	switch res.Kind {
	case speech.Transcript:
		t := c.beginTurnLocked(res.Text)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		c.send(t)

	case speech.Failed:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Warn("voicechat: recognition failed", "err", res.Err)
		c.publish(snap)
		c.notify(Notice{Kind: RecognitionError, Message: MessageRecognitionFailed, Err: res.Err})

	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
	}
}

// Submit sends typed text as if it had been recognized. A capture in
// progress is aborted.
func (c *Controller) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return chatapi.ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.registry.Active().State == conversation.ActiveProvisional {
		c.mu.Unlock()
		return ErrSessionPending
	}
	wasListening := c.listening
	if wasListening {
		c.endListenLocked()
	}
	t := c.beginTurnLocked(text)
	snap := c.snapshotLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	if wasListening {
		c.recognizer.Stop()
	}
	c.publish(snap)
	go func() {
		defer c.wg.Done()
		c.send(t)
	}()
	return nil
}

// beginTurnLocked appends the user message and records the pending request.
// With no active session the registry becomes provisional until the backend
// allocates one.
func (c *Controller) beginTurnLocked(text string) turn {
	c.thread.Append(conversation.UserMessage(text))
	t := turn{text: text, epoch: c.epoch}
	switch active := c.registry.Active(); active.State {
	case conversation.ActiveNone:
		c.registry.BeginProvisional()
		t.provisional = true
	case conversation.ActiveAssigned:
		t.sessionID = active.ID
	}
	c.inflight++
	return t
}

func (c *Controller) send(t turn) {
	reply, err := c.backend.SendMessage(c.ctx, t.text, t.sessionID)

	c.mu.Lock()
	c.inflight--

	if err != nil && c.ctx.Err() != nil {
		c.mu.Unlock()
		c.log.Debug("voicechat: chat request aborted by close", "session", t.sessionID)
		return
	}
	if t.epoch != c.epoch {
		if err == nil && t.provisional {
			c.registry.Remember(conversation.Session{ID: reply.SessionID, CreatedAt: jsontime.Lenient(c.now())})
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Info("voicechat: discard reply for a previous session", "session", t.sessionID, "err", err)
		c.publish(snap)
		return
	}

	text := reply.Text
	if err != nil {
		text = ErrorReply
		if t.provisional {
			c.registry.ClearProvisional()
		}
		c.log.Warn("voicechat: chat request failed", "session", t.sessionID, "err", err)
	} else if t.provisional {
		if c.registry.ReconcileImplicit(reply.SessionID, c.now()) {
			c.log.Debug("voicechat: session allocated", "session", reply.SessionID)
		}
	}
	c.thread.Append(conversation.AssistantMessage(text))
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	c.speak(text)
}

// CreateSession creates a new backend session and makes it active with an
// empty thread. On failure a TransportError notice is raised and nothing
// changes.
func (c *Controller) CreateSession(ctx context.Context) (conversation.Session, error) {
	seq, err := c.beginSwitch()
	if err != nil {
		return conversation.Session{}, err
	}
	s, err := c.backend.CreateSession(ctx)

	c.mu.Lock()
	if seq != c.switchSeq {
		if err == nil {
			c.registry.Remember(s)
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return s, ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("voicechat: create session failed", "err", err)
		c.notify(Notice{Kind: TransportError, Message: MessageSessionCreateFailed, Err: err})
		return conversation.Session{}, err
	}
	c.epoch++
	c.registry.Create(s)
	c.thread.Reset()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("voicechat: session created", "session", s.ID)
	c.publish(snap)
	return s, nil
}

// LoadSession makes id the active session and replaces the thread with its
// history. If another switch is requested before this one completes, this
// one is discarded and ErrSuperseded returned. On failure a TransportError
// notice is raised and nothing changes.
func (c *Controller) LoadSession(ctx context.Context, id conversation.SessionID) error {
	seq, err := c.beginSwitch()
	if err != nil {
		return err
	}
	msgs, err := c.backend.GetSession(ctx, id)

	c.mu.Lock()
	if seq != c.switchSeq {
		c.mu.Unlock()
		c.log.Debug("voicechat: discard superseded session load", "session", id)
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("voicechat: load session failed", "session", id, "err", err)
		c.notify(Notice{Kind: TransportError, Message: MessageSessionLoadFailed, Err: err})
		return err
	}
	c.epoch++
	c.registry.Activate(id, c.now())
	c.thread.Replace(msgs)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("voicechat: session loaded", "session", id, "messages", len(msgs))
	c.publish(snap)
	return nil
}

func (c *Controller) beginSwitch() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.switchSeq++
	return c.switchSeq, nil
}

// RefreshSessions replaces the session list with the backend's. On failure
// the list is left unchanged and the error returned; no notice is raised.
func (c *Controller) RefreshSessions(ctx context.Context) error {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.registry.Replace(sessions)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// Wait blocks until all captures and pending replies have completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close aborts the current capture and pending requests and waits for
// them to finish.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	listening := c.listening
	if listening {
		c.endListenLocked()
	}
	c.mu.Unlock()

	if listening {
		c.recognizer.Stop()
	}
	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Controller) speak(text string) {
	if text == "" {
		return
	}
	if c.speaker == nil || !c.speaker.Available() {
		c.speakerUnavailable(speech.ErrUnavailable)
		return
	}
	if err := c.speaker.Speak(c.ctx, text, c.locale); err != nil {
		c.speakerUnavailable(err)
	}
}

// speakerUnavailable reports a missing speaker once; replies are still
// shown in the thread.
func (c *Controller) speakerUnavailable(err error) {
	c.speakOnce.Do(func() {
		c.log.Warn("voicechat: speech synthesis unavailable", "err", err)
		c.notify(Notice{Kind: CapabilityUnavailable, Message: MessageSynthesisUnavailable, Err: err})
	})
}

func (c *Controller) publish(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Controller) notify(n Notice) {
	if c.onNotice != nil {
		c.onNotice(n)
	}
}
