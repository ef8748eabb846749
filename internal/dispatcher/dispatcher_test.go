package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/udisondev/chessd/internal/ai"
	"github.com/udisondev/chessd/internal/auth"
	"github.com/udisondev/chessd/internal/chessengine"
	"github.com/udisondev/chessd/internal/config"
	"github.com/udisondev/chessd/internal/coordinator"
	"github.com/udisondev/chessd/internal/db"
	"github.com/udisondev/chessd/internal/game"
	"github.com/udisondev/chessd/internal/matchmaker"
	"github.com/udisondev/chessd/internal/presence"
	"github.com/udisondev/chessd/internal/session"
	"github.com/udisondev/chessd/internal/wire"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *session.Registry) {
	t.Helper()
	users := db.NewMemoryUserRepository()
	games := db.NewMemoryGameRepository()
	registry := session.NewRegistry()
	matcher := matchmaker.New(0, time.Minute)
	controller := game.New(chessengine.DefaultEngine{}, games, users)
	pres := presence.New(registry)
	authSvc := auth.New(users, 4)
	coord := coordinator.New(config.Default(), registry, matcher, controller, pres, authSvc, ai.BuiltinProvider{}, 1)
	return New(coord), registry
}

func TestDispatchIgnoresUnknownMessageID(t *testing.T) {
	d, registry := newTestDispatcher(t)
	s := registry.Create(nil)
	d.Dispatch(context.Background(), s, 0xFFFF, nil)
	// No panic, no reply queued — nothing to assert beyond surviving the call.
	select {
	case <-s.Outbox():
		t.Fatal("expected no reply for an unknown message id")
	default:
	}
}

func TestDispatchRejectsWrongState(t *testing.T) {
	d, registry := newTestDispatcher(t)
	s := registry.Create(nil)

	payload, _ := json.Marshal(wire.MakeMoveRequest{GameID: "g1", Move: "e2e4"})
	d.Dispatch(context.Background(), s, wire.MakeMove, payload)

	select {
	case frame := <-s.Outbox():
		id, _, err := decodeFrame(frame)
		if err != nil {
			t.Fatalf("decoding frame: %v", err)
		}
		if id != wire.StateError {
			t.Fatalf("expected STATE_ERROR reply, got %#04x", id)
		}
	default:
		t.Fatal("expected a STATE_ERROR reply")
	}
}

func TestRegisterThenLoginHappyPath(t *testing.T) {
	d, registry := newTestDispatcher(t)
	s := registry.Create(nil)

	regPayload, _ := json.Marshal(wire.RegisterRequest{Username: "alice", Password: "hunter2"})
	d.Dispatch(context.Background(), s, wire.Register, regPayload)

	frame := <-s.Outbox()
	id, body, _ := decodeFrame(frame)
	if id != wire.RegisterResult {
		t.Fatalf("expected REGISTER_RESULT, got %#04x", id)
	}
	var regResult wire.RegisterResultPayload
	_ = json.Unmarshal(body, &regResult)
	if !regResult.Success {
		t.Fatalf("expected successful registration, got %+v", regResult)
	}

	loginPayload, _ := json.Marshal(wire.LoginRequest{Username: "alice", Password: "hunter2"})
	d.Dispatch(context.Background(), s, wire.Login, loginPayload)

	frame = <-s.Outbox()
	id, body, _ = decodeFrame(frame)
	if id != wire.LoginResult {
		t.Fatalf("expected LOGIN_RESULT, got %#04x", id)
	}
	var loginResult wire.LoginResultPayload
	_ = json.Unmarshal(body, &loginResult)
	if !loginResult.Success {
		t.Fatalf("expected successful login, got %+v", loginResult)
	}
	if s.State() != session.Authenticated {
		t.Fatalf("expected session promoted to Authenticated, got %s", s.State())
	}
}

// decodeFrame splits a raw frame (as produced by protocol.Encode) back into
// its message id and payload for test assertions.
func decodeFrame(frame []byte) (uint16, []byte, error) {
	id := uint16(frame[0])<<8 | uint16(frame[1])
	length := uint32(frame[2])<<24 | uint32(frame[3])<<16 | uint32(frame[4])<<8 | uint32(frame[5])
	return id, frame[6 : 6+length], nil
}
