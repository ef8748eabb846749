package presence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/udisondev/chessd/internal/session"
	"github.com/udisondev/chessd/internal/wire"
)

func authenticatedSession(r *session.Registry, userID, username string, rating int) *session.Session {
	s := r.Create(nil)
	s.SetIdentity(userID, username, rating)
	s.SetState(session.Authenticated)
	return s
}

func TestSnapshotReflectsOnlineAndOffline(t *testing.T) {
	r := session.NewRegistry()
	svc := New(r)

	svc.Online("u1", "alice", 1200)
	svc.Online("u2", "bob", 1300)
	if len(svc.Snapshot()) != 2 {
		t.Fatalf("expected 2 online users, got %d", len(svc.Snapshot()))
	}

	svc.Offline("u1")
	snap := svc.Snapshot()
	if len(snap) != 1 || snap[0].UserID != "u2" {
		t.Fatalf("expected only u2 left online, got %+v", snap)
	}
}

func TestBroadcastExcludesSelfAndSkipsUnauthenticated(t *testing.T) {
	r := session.NewRegistry()
	svc := New(r)
	svc.debounce = time.Millisecond

	alice := authenticatedSession(r, "u1", "alice", 1200)
	bob := authenticatedSession(r, "u2", "bob", 1300)
	anon := r.Create(nil) // still Connected, not logged in

	svc.Online("u1", "alice", 1200)
	svc.Online("u2", "bob", 1300)

	// drain whatever each prior Online() call already queued
	drainAll(alice)
	drainAll(bob)
	drainAll(anon)

	svc.scheduleBroadcast()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-anon.Outbox():
		t.Fatal("expected no broadcast to a session that never authenticated")
	default:
	}

	frame := mustReceive(t, alice)
	payload := decodeOnlineUsersList(t, frame)
	for _, u := range payload.Users {
		if u.UserID == "u1" {
			t.Fatal("expected alice's own view to exclude herself")
		}
	}

	frame = mustReceive(t, bob)
	payload = decodeOnlineUsersList(t, frame)
	found := false
	for _, u := range payload.Users {
		if u.UserID == "u1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected bob's view to include alice")
	}
}

func drainAll(s *session.Session) {
	for {
		select {
		case <-s.Outbox():
		default:
			return
		}
	}
}

func mustReceive(t *testing.T, s *session.Session) []byte {
	t.Helper()
	select {
	case f := <-s.Outbox():
		return f
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected a queued broadcast frame")
		return nil
	}
}

// decodeFrame splits a raw frame (as produced by protocol.Encode) back into
// its message id and payload for test assertions.
func decodeFrame(frame []byte) (uint16, []byte) {
	id := uint16(frame[0])<<8 | uint16(frame[1])
	length := uint32(frame[2])<<24 | uint32(frame[3])<<16 | uint32(frame[4])<<8 | uint32(frame[5])
	return id, frame[6 : 6+length]
}

func decodeOnlineUsersList(t *testing.T, frame []byte) wire.OnlineUsersListPayload {
	t.Helper()
	id, body := decodeFrame(frame)
	if id != wire.OnlineUsersList {
		t.Fatalf("expected ONLINE_USERS_LIST, got %#04x", id)
	}
	var p wire.OnlineUsersListPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	return p
}
