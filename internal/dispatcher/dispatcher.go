// Package dispatcher implements the Dispatcher component (spec §4.3): a
// static table from message id to handler, the sole entry point from the
// frame codec into business logic. Grounded on the teacher's
// login/handler.go opcode switch (internal/login/handler.go), generalized
// from a single-byte opcode switch into a table keyed by the wire
// package's 16-bit message ids, each entry also carrying the required
// session-state precondition spec §4.3 names.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/udisondev/chessd/internal/coordinator"
	"github.com/udisondev/chessd/internal/session"
	"github.com/udisondev/chessd/internal/wire"
)

// anyState matches a handler with no state precondition (spec §4.3 allows
// REGISTER/LOGIN from Connected only, but some operations are valid from
// more than one state — none currently are, so this exists for
// completeness rather than present use).
const anyState session.State = -1

// entry is one row of the dispatch table.
type entry struct {
	requiredState session.State
	handle        func(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error
}

// Dispatcher routes decoded frames to coordinator operations.
type Dispatcher struct {
	coord *coordinator.Coordinator
	table map[uint16]entry
}

// New builds the dispatch table for every message id the wire package
// defines (spec §6).
func New(coord *coordinator.Coordinator) *Dispatcher {
	d := &Dispatcher{coord: coord}
	d.table = map[uint16]entry{
		wire.Register:          {session.Connected, handleRegister},
		wire.Login:             {session.Connected, handleLogin},
		wire.FindMatch:         {session.Authenticated, handleFindMatch},
		wire.CancelFindMatch:   {session.Authenticated, handleCancelFindMatch},
		wire.FindAIMatch:       {session.Authenticated, handleFindAIMatch},
		wire.Challenge:         {session.Authenticated, handleChallenge},
		wire.AcceptChallenge:   {session.Authenticated, handleAcceptChallenge},
		wire.DeclineChallenge:  {session.Authenticated, handleDeclineChallenge},
		wire.MakeMove:          {session.InGame, handleMakeMove},
		wire.Resign:            {session.InGame, handleResign},
		wire.OfferDraw:         {session.InGame, handleOfferDraw},
		wire.AcceptDraw:        {session.InGame, handleAcceptDraw},
		wire.DeclineDraw:       {session.InGame, handleDeclineDraw},
	}
	return d
}

// Dispatch decodes and routes one frame. Unknown message ids are logged
// and ignored (spec §4.1); a state-precondition mismatch gets a typed
// StateError reply without invoking the handler (spec §4.3); a payload that
// does not decode as JSON for a known id makes the handler return an error,
// which is logged here and answered with INTERNAL_ERROR. The session is kept
// open in every one of these cases.
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, messageID uint16, payload []byte) {
	e, ok := d.table[messageID]
	if !ok {
		slog.Warn("unknown message id", "message_id", fmt.Sprintf("%#04x", messageID), "session", s.ID())
		return
	}

	if e.requiredState != anyState && s.State() != e.requiredState {
		_ = s.Send(wire.StateError, wire.StateErrorPayload{
			Reason: fmt.Sprintf("%s requires state %s, session is %s", wire.Name(messageID), e.requiredState, s.State()),
		})
		return
	}

	s.Touch()
	if err := e.handle(ctx, d, s, payload); err != nil {
		slog.Error("handler error", "message_id", wire.Name(messageID), "session", s.ID(), "err", err)
		_ = s.Send(wire.InternalError, wire.InternalErrorPayload{Error: "internal error"})
	}
}

func decode[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("decoding payload: %w", err)
	}
	return v, nil
}

func handleRegister(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.RegisterRequest](payload)
	if err != nil {
		return err
	}
	d.coord.Register(ctx, s, req)
	return nil
}

func handleLogin(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.LoginRequest](payload)
	if err != nil {
		return err
	}
	d.coord.Login(ctx, s, req)
	return nil
}

func handleFindMatch(ctx context.Context, d *Dispatcher, s *session.Session, _ []byte) error {
	d.coord.FindMatch(ctx, s)
	return nil
}

func handleCancelFindMatch(_ context.Context, d *Dispatcher, s *session.Session, _ []byte) error {
	d.coord.CancelFindMatch(s)
	return nil
}

func handleFindAIMatch(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.FindAIMatchRequest](payload)
	if err != nil {
		return err
	}
	d.coord.FindAIMatch(ctx, s, req)
	return nil
}

func handleChallenge(_ context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.ChallengeRequest](payload)
	if err != nil {
		return err
	}
	d.coord.Challenge(s, req)
	return nil
}

func handleAcceptChallenge(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.AcceptChallengeRequest](payload)
	if err != nil {
		return err
	}
	d.coord.AcceptChallenge(ctx, s, req)
	return nil
}

func handleDeclineChallenge(_ context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.DeclineChallengeRequest](payload)
	if err != nil {
		return err
	}
	d.coord.DeclineChallenge(s, req)
	return nil
}

func handleMakeMove(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.MakeMoveRequest](payload)
	if err != nil {
		return err
	}
	d.coord.MakeMove(ctx, s, req)
	return nil
}

func handleResign(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.GameIDRequest](payload)
	if err != nil {
		return err
	}
	d.coord.Resign(ctx, s, req)
	return nil
}

func handleOfferDraw(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.GameIDRequest](payload)
	if err != nil {
		return err
	}
	d.coord.OfferDraw(ctx, s, req)
	return nil
}

func handleAcceptDraw(ctx context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.GameIDRequest](payload)
	if err != nil {
		return err
	}
	d.coord.AcceptDraw(ctx, s, req)
	return nil
}

func handleDeclineDraw(_ context.Context, d *Dispatcher, s *session.Session, payload []byte) error {
	req, err := decode[wire.GameIDRequest](payload)
	if err != nil {
		return err
	}
	d.coord.DeclineDraw(s, req)
	return nil
}
