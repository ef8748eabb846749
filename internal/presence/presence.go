// Package presence implements the Presence Service (spec §4.5): the
// online-users set and its debounced broadcast. Grounded on the teacher's
// session_manager.go sync.Map-keyed set, generalized to carry display data
// (username, rating) instead of just session keys, and to coalesce bursts
// of churn the way the teacher's CleanExpired sweep runs off a ticker
// rather than per-event.
package presence

import (
	"sync"
	"time"

	"github.com/udisondev/chessd/internal/session"
	"github.com/udisondev/chessd/internal/wire"
)

// DebounceWindow is how long successive presence changes coalesce into a
// single broadcast (spec §4.5: "debounced ... within 100 ms").
const DebounceWindow = 100 * time.Millisecond

// Service maintains the online-users set and broadcasts it to every
// authenticated session, excluding each recipient from their own view.
type Service struct {
	registry *session.Registry

	mu        sync.Mutex
	users     map[string]wire.UserSummary
	pending   bool
	debounce  time.Duration
}

// New returns a Service broadcasting through registry.
func New(registry *session.Registry) *Service {
	return &Service{
		registry: registry,
		users:    make(map[string]wire.UserSummary),
		debounce: DebounceWindow,
	}
}

// Online inserts a user into the online set and schedules a broadcast.
func (p *Service) Online(userID, username string, rating int) {
	p.mu.Lock()
	p.users[userID] = wire.UserSummary{UserID: userID, Username: username, Rating: rating}
	p.mu.Unlock()
	p.scheduleBroadcast()
}

// Offline removes a user from the online set and schedules a broadcast.
func (p *Service) Offline(userID string) {
	p.mu.Lock()
	delete(p.users, userID)
	p.mu.Unlock()
	p.scheduleBroadcast()
}

// Snapshot returns the current online-users set.
func (p *Service) Snapshot() []wire.UserSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]wire.UserSummary, 0, len(p.users))
	for _, u := range p.users {
		out = append(out, u)
	}
	return out
}

func (p *Service) scheduleBroadcast() {
	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = true
	p.mu.Unlock()

	time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
		p.broadcastNow()
	})
}

func (p *Service) broadcastNow() {
	all := p.Snapshot()

	p.registry.Range(func(s *session.Session) {
		if s.State() == session.Connected {
			return
		}
		userID, _ := s.Identity()
		filtered := make([]wire.UserSummary, 0, len(all))
		for _, u := range all {
			if u.UserID != userID {
				filtered = append(filtered, u)
			}
		}
		_ = s.Send(wire.OnlineUsersList, wire.OnlineUsersListPayload{Users: filtered})
	})
}
