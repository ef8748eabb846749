package session

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// Registry owns every live Session, indexed by session id and, once
// authenticated, by user id (spec §3: "the Session Registry exclusively
// owns Session structs"). Mirrors the teacher's session_manager.go index
// shape, generalized to two indices instead of one.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	byUserID  map[string]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*Session),
		byUserID: make(map[string]*Session),
	}
}

// Create assigns a fresh session id to conn, registers it, and returns it.
func (r *Registry) Create(conn net.Conn) *Session {
	s := New(uuid.NewString(), conn)
	r.mu.Lock()
	r.byID[s.ID()] = s
	r.mu.Unlock()
	return s
}

// BindUser indexes a session by user id once it authenticates. Spec §4.4:
// at most one live session per user is expected by the matchmaker/presence
// invariants, but the registry itself does not reject a second login here:
// a later BindUser for the same user id replaces the earlier entry. The
// dispatcher's Connected-only precondition on LOGIN only stops a session
// that is already logged in from logging in again.
func (r *Registry) BindUser(s *Session, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUserID[userID] = s
}

// LookupBySession returns the session for id, if live.
func (r *Registry) LookupBySession(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// LookupByUser returns the live session for a user id, if authenticated and
// connected.
func (r *Registry) LookupByUser(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUserID[userID]
	return s, ok
}

// Broadcast sends messageID/payload to every registered session for which
// predicate returns true. Send errors (a saturated peer) are swallowed here
// — Session.Send already flags and closes that session; broadcast must not
// let one slow consumer block delivery to the rest (spec §4.1, §7).
func (r *Registry) Broadcast(predicate func(*Session) bool, messageID uint16, payload any) {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		if predicate(s) {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range targets {
		_ = s.Send(messageID, payload)
	}
}

// Remove deletes a session from the registry's own indices and returns it
// (nil if unknown). This only retires the Registry's bookkeeping; the
// caller (the coordinator's Disconnect) also ends any active game, then
// removes the session from the matchmaking queue and the challenge table
// before calling Remove, and drops it from presence afterwards.
func (r *Registry) Remove(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	for userID, cur := range r.byUserID {
		if cur == s {
			delete(r.byUserID, userID)
		}
	}
	return s
}

// Range calls fn for every live session. fn must not call back into the
// Registry.
func (r *Registry) Range(fn func(*Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		fn(s)
	}
}
