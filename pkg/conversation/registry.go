package conversation

import (
	"slices"
	"sync"
	"time"

	"github.com/haivivi/v2v/pkg/jsontime"
)

// Registry tracks the sessions known to the client, most recently created
// first, and which one is active. Session ids are unique within the
// registry; every operation that inserts checks for an existing entry.
type Registry struct {
	mu       sync.RWMutex
	sessions []Session
	active   ActiveSession
}

// NewRegistry returns an empty registry with no active session.
func NewRegistry() *Registry {
	return &Registry{}
}

// Sessions returns a copy of the session list in display order.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.sessions)
}

// Len returns the number of known sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Lookup returns the session with the given id.
func (r *Registry) Lookup(id SessionID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexLocked(id); i >= 0 {
		return r.sessions[i], true
	}
	return Session{}, false
}

// Active returns the active session pointer.
func (r *Registry) Active() ActiveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Replace installs a freshly fetched session list. Duplicate ids collapse to
// their first occurrence. An assigned active session missing from list is
// kept at the front so the active id stays listed.
func (r *Registry) Replace(list []Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[SessionID]bool, len(list))
	out := make([]Session, 0, len(list)+1)
	for _, s := range list {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	if r.active.State == ActiveAssigned && !seen[r.active.ID] {
		if i := r.indexLocked(r.active.ID); i >= 0 {
			out = slices.Insert(out, 0, r.sessions[i])
		}
	}
	r.sessions = out
}

// Create records an explicitly created session at the front of the list and
// makes it active. If the id is already listed it is only activated.
func (r *Registry) Create(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prependLocked(s)
	r.active = ActiveSession{State: ActiveAssigned, ID: s.ID}
}

// Remember records a session without activating it. It reports whether the
// session was new.
func (r *Registry) Remember(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prependLocked(s)
}

// Activate makes id the active session. If id is not listed yet it is
// prepended with the fallback creation time.
func (r *Registry) Activate(id SessionID, fallback time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prependLocked(Session{ID: id, CreatedAt: jsontime.Lenient(fallback)})
	r.active = ActiveSession{State: ActiveAssigned, ID: id}
}

// BeginProvisional marks that a message was sent with no session and the
// backend is expected to allocate one. It has no effect when a session is
// already active.
func (r *Registry) BeginProvisional() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active.State == ActiveNone {
		r.active = ActiveSession{State: ActiveProvisional}
	}
}

// ClearProvisional abandons a provisional session, e.g. after the allocating
// request failed. It has no effect in any other state.
func (r *Registry) ClearProvisional() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active.State == ActiveProvisional {
		r.active = ActiveSession{}
	}
}

// ReconcileImplicit merges a backend-allocated session id into the registry
// after the first reply of an implicitly created session. If id is already
// listed, for example because a concurrent listing returned it first, the
// existing entry is only activated. Otherwise a new entry with the
// client-side fallback timestamp is prepended. The call is idempotent and
// reports whether an entry was inserted.
func (r *Registry) ReconcileImplicit(id SessionID, fallback time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := r.prependLocked(Session{ID: id, CreatedAt: jsontime.Lenient(fallback)})
	r.active = ActiveSession{State: ActiveAssigned, ID: id}
	return inserted
}

func (r *Registry) prependLocked(s Session) bool {
	if r.indexLocked(s.ID) >= 0 {
		return false
	}
	r.sessions = slices.Insert(r.sessions, 0, s)
	return true
}

func (r *Registry) indexLocked(id SessionID) int {
	return slices.IndexFunc(r.sessions, func(s Session) bool { return s.ID == id })
}
