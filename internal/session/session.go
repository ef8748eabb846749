// Package session implements the Session Registry (spec §4.2): per-
// connection state, and the map/index that the rest of the system looks
// sessions up through. Grounded on the teacher's internal/login/client.go
// (mutex-guarded per-connection state) and internal/login/session_manager.go
// (sync.Map-keyed secondary index), generalized from a single login/account
// mapping into the fuller Connected/Authenticated/InGame lifecycle spec §3
// names.
package session

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/chessd/internal/protocol"
)

// MaxSendQueue bounds the number of outbound frames buffered per session
// before the backpressure policy in spec §4.1 kicks in: drop the slow
// consumer by disconnecting it.
const MaxSendQueue = 256

// ErrSendQueueFull is returned by Send when a session's outbound buffer is
// saturated. The caller should treat the session as being torn down — the
// session is marked closed (Closed() fires) and the connection's writer
// loop will exit.
var ErrSendQueueFull = fmt.Errorf("session: send queue full")

// Session is one live connection's server-side context (spec §3 Session).
type Session struct {
	id   string
	conn net.Conn

	state State

	userID   string
	username string
	rating   int
	gameID   string

	lastActivity atomic.Int64 // unix nanos

	mu sync.Mutex

	outbox      chan []byte
	closeOnce   sync.Once
	closed      chan struct{}
	overflowed  atomic.Bool
}

// New creates a Session wrapping conn, in state Connected.
func New(id string, conn net.Conn) *Session {
	s := &Session{
		id:     id,
		conn:   conn,
		state:  Connected,
		outbox: make(chan []byte, MaxSendQueue),
		closed: make(chan struct{}),
	}
	s.Touch()
	return s
}

// ID returns the session's internal id.
func (s *Session) ID() string { return s.id }

// Conn returns the underlying connection (for the read loop only — all
// writes go through Send/Outbox).
func (s *Session) Conn() net.Conn { return s.conn }

// Outbox is the channel the connection's writer goroutine drains.
func (s *Session) Outbox() <-chan []byte { return s.outbox }

// Closed is closed once the session has been torn down (overflow or
// explicit close), signalling the writer goroutine to stop.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// MarkClosed idempotently signals the writer goroutine to stop.
func (s *Session) MarkClosed() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session's lifecycle state.
func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Identity returns the authenticated user id and username, empty if the
// session has not logged in.
func (s *Session) Identity() (userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.username
}

// SetIdentity attaches an authenticated user to this session, including the
// rating snapshot taken at login (kept current only as of login time — the
// matchmaker and challenge flows read it from here rather than re-querying
// the repository on every request).
func (s *Session) SetIdentity(userID, username string, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.username = username
	s.rating = rating
}

// Rating returns the rating snapshot attached at login.
func (s *Session) Rating() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rating
}

// GameID returns the session's current game id, empty if not InGame.
func (s *Session) GameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// SetGameID sets (or clears, with "") the session's current game id.
func (s *Session) SetGameID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = id
}

// Touch records activity now, for the idle-timeout sweep.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor returns how long it has been since the last recorded activity.
func (s *Session) IdleFor() time.Duration {
	last := time.Unix(0, s.lastActivity.Load())
	return time.Since(last)
}

// Send marshals v as JSON, frames it under messageID, and enqueues it for
// the writer goroutine. Non-blocking: if the outbox is saturated the
// session is flagged overflowed and ErrSendQueueFull is returned — the
// caller (coordinator) should then close the session (spec §4.1
// backpressure policy).
func (s *Session) Send(messageID uint16, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %#04x: %w", messageID, err)
	}
	frame, err := protocol.Encode(messageID, payload)
	if err != nil {
		return fmt.Errorf("encoding frame %#04x: %w", messageID, err)
	}
	select {
	case s.outbox <- frame:
		return nil
	default:
		s.overflowed.Store(true)
		s.MarkClosed()
		return ErrSendQueueFull
	}
}

// Overflowed reports whether this session's send queue has ever saturated.
func (s *Session) Overflowed() bool { return s.overflowed.Load() }
