package game

import (
	"context"
	"errors"
	"testing"

	"github.com/udisondev/chessd/internal/chessengine"
	"github.com/udisondev/chessd/internal/db"
	"github.com/udisondev/chessd/internal/model"
)

func newTestController(t *testing.T) (*Controller, *db.MemoryUserRepository, string, string) {
	t.Helper()
	users := db.NewMemoryUserRepository()
	games := db.NewMemoryGameRepository()
	ctrl := New(chessengine.DefaultEngine{}, games, users)

	alice, err := users.CreateUser(context.Background(), "alice", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := users.CreateUser(context.Background(), "bob", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return ctrl, users, alice.ID, bob.ID
}

// S1: match start produces the standard initial FEN, and white's first move
// updates the position and turn as expected.
func TestMakeMoveHappyPath(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, err := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if g.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1" {
		t.Fatalf("unexpected initial FEN: %s", g.FEN)
	}

	updated, term, err := ctrl.MakeMove(context.Background(), g.ID, alice, "e2e4")
	if err != nil {
		t.Fatalf("make move: %v", err)
	}
	if term != nil {
		t.Fatalf("expected ongoing game, got termination")
	}
	if updated.FEN[:len("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b")] != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b" {
		t.Fatalf("unexpected fen after e2e4: %s", updated.FEN)
	}
	if updated.Moves[len(updated.Moves)-1] != "e2e4" {
		t.Fatalf("expected last move e2e4, got %s", updated.Moves[len(updated.Moves)-1])
	}
}

// S2: Fool's mate ends the game by checkmate, black wins, ratings move in
// opposite directions and sum to zero.
func TestFoolsMateCheckmateEndsGameAndUpdatesRatings(t *testing.T) {
	ctrl, users, alice, bob := newTestController(t)
	g, err := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}

	moves := []struct {
		player string
		move   string
	}{
		{alice, "f2f3"},
		{bob, "e7e5"},
		{alice, "g2g4"},
	}
	var term *Termination
	for _, mv := range moves {
		_, term, err = ctrl.MakeMove(context.Background(), g.ID, mv.player, mv.move)
		if err != nil {
			t.Fatalf("move %s: %v", mv.move, err)
		}
		if term != nil {
			t.Fatalf("unexpected early termination at move %s", mv.move)
		}
	}

	_, term, err = ctrl.MakeMove(context.Background(), g.ID, bob, "d8h4")
	if err != nil {
		t.Fatalf("checkmating move: %v", err)
	}
	if term == nil {
		t.Fatal("expected checkmate to terminate the game")
	}
	if term.Game.Result != model.ResultBlackWin {
		t.Fatalf("expected black_win, got %s", term.Game.Result)
	}
	if term.Game.Cause != "checkmate" {
		t.Fatalf("expected cause checkmate, got %s", term.Game.Cause)
	}
	if term.WhiteDelta >= 0 || term.BlackDelta <= 0 {
		t.Fatalf("expected white delta negative and black delta positive, got %d/%d", term.WhiteDelta, term.BlackDelta)
	}
	if term.WhiteDelta+term.BlackDelta != 0 {
		t.Fatalf("expected deltas to sum to zero, got %d", term.WhiteDelta+term.BlackDelta)
	}

	if _, ok := ctrl.Get(g.ID); ok {
		t.Fatal("expected game removed from active map after termination")
	}

	aliceAfter, _ := users.GetUserByID(context.Background(), alice)
	bobAfter, _ := users.GetUserByID(context.Background(), bob)
	if aliceAfter.Rating >= model.DefaultRating {
		t.Fatalf("expected alice's rating to drop, got %d", aliceAfter.Rating)
	}
	if bobAfter.Rating <= model.DefaultRating {
		t.Fatalf("expected bob's rating to rise, got %d", bobAfter.Rating)
	}
	if aliceAfter.Losses != 1 || bobAfter.Wins != 1 {
		t.Fatalf("expected alice loss and bob win counters, got %+v / %+v", aliceAfter, bobAfter)
	}
}

// S3: resignation awards the win to the other side and updates counters.
func TestResignation(t *testing.T) {
	ctrl, users, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	term, err := ctrl.Resign(context.Background(), g.ID, alice)
	if err != nil {
		t.Fatalf("resign: %v", err)
	}
	if term.Game.Result != model.ResultBlackWin || term.Game.Cause != "resignation" {
		t.Fatalf("unexpected termination: %+v", term.Game)
	}

	aliceAfter, _ := users.GetUserByID(context.Background(), alice)
	bobAfter, _ := users.GetUserByID(context.Background(), bob)
	if aliceAfter.Losses != 1 {
		t.Fatalf("expected alice losses=1, got %d", aliceAfter.Losses)
	}
	if bobAfter.Wins != 1 {
		t.Fatalf("expected bob wins=1, got %d", bobAfter.Wins)
	}
}

// S4: an illegal move is rejected, leaves the game untouched, and reports
// to the mover only (the caller, not the controller, owns who gets told).
func TestIllegalMoveRejectedWithoutMutation(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	_, _, err := ctrl.MakeMove(context.Background(), g.ID, alice, "e2e5")
	if err == nil {
		t.Fatal("expected illegal move to be rejected")
	}
	var illegal *chessengine.IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected an illegal-move error, got %v", err)
	}

	current, _ := ctrl.Get(g.ID)
	if len(current.Moves) != 0 {
		t.Fatalf("expected no moves recorded, got %v", current.Moves)
	}
	if current.FEN != g.FEN {
		t.Fatalf("expected position unchanged, got %s", current.FEN)
	}
}

// S5: a move submitted out of turn is rejected with ErrNotYourTurn.
func TestOutOfTurnMoveRejected(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	_, _, err := ctrl.MakeMove(context.Background(), g.ID, bob, "e7e5")
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
}

// S6: draw by agreement ends the game as a draw with ratings moving toward
// each other by the expected-score formula, summing to zero.
func TestDrawByAgreement(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	if _, term, err := ctrl.OfferDraw(context.Background(), g.ID, alice); err != nil || term != nil {
		t.Fatalf("offer draw: term=%v err=%v", term, err)
	}

	// Offering again from the same side is a no-op.
	if _, term, err := ctrl.OfferDraw(context.Background(), g.ID, alice); err != nil || term != nil {
		t.Fatalf("repeated offer should be a no-op, got term=%v err=%v", term, err)
	}

	term, err := ctrl.AcceptDraw(context.Background(), g.ID, bob)
	if err != nil {
		t.Fatalf("accept draw: %v", err)
	}
	if term.Game.Result != model.ResultDraw || term.Game.Cause != "agreement" {
		t.Fatalf("unexpected termination: %+v", term.Game)
	}
	if term.WhiteDelta+term.BlackDelta != 0 {
		t.Fatalf("expected deltas to sum to zero, got %d", term.WhiteDelta+term.BlackDelta)
	}
}

// Implicit accept: offering a draw while the other side's offer is already
// outstanding ends the game immediately as a draw (spec §4.8).
func TestOfferDrawWhileOtherOfferOutstandingIsImplicitAccept(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	if _, term, err := ctrl.OfferDraw(context.Background(), g.ID, alice); err != nil || term != nil {
		t.Fatalf("offer draw: term=%v err=%v", term, err)
	}
	_, term, err := ctrl.OfferDraw(context.Background(), g.ID, bob)
	if err != nil {
		t.Fatalf("implicit accept: %v", err)
	}
	if term == nil || term.Game.Result != model.ResultDraw {
		t.Fatalf("expected implicit accept to end the game as a draw, got %+v", term)
	}
}

func TestDeclineDrawClearsOffer(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	_, _, _ = ctrl.OfferDraw(context.Background(), g.ID, alice)
	updated, err := ctrl.DeclineDraw(g.ID, bob)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if updated.DrawOffer.Outstanding {
		t.Fatal("expected draw offer cleared")
	}

	// Declining again with nothing outstanding is a no-op, not an error.
	if _, err := ctrl.DeclineDraw(g.ID, bob); err != nil {
		t.Fatalf("expected no-op decline to succeed, got %v", err)
	}
}

func TestAcceptDrawWithoutOfferFails(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	if _, err := ctrl.AcceptDraw(context.Background(), g.ID, bob); !errors.Is(err, ErrNoDrawOffer) {
		t.Fatalf("expected ErrNoDrawOffer, got %v", err)
	}
}

func TestAnyMoveClearsOutstandingDrawOffer(t *testing.T) {
	ctrl, _, alice, bob := newTestController(t)
	g, _ := ctrl.StartGame(context.Background(), alice, "alice", bob, "bob", false)

	_, _, _ = ctrl.OfferDraw(context.Background(), g.ID, alice)
	updated, _, err := ctrl.MakeMove(context.Background(), g.ID, alice, "e2e4")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if updated.DrawOffer.Outstanding {
		t.Fatal("expected move to clear the outstanding draw offer")
	}
}

// AI games never touch ratings (spec §4.9).
func TestAIGameDoesNotUpdateRatings(t *testing.T) {
	ctrl, users, alice, _ := newTestController(t)
	g, err := ctrl.StartGame(context.Background(), alice, "alice", "", "ai", true)
	if err != nil {
		t.Fatalf("start ai game: %v", err)
	}

	term, err := ctrl.Resign(context.Background(), g.ID, alice)
	if err != nil {
		t.Fatalf("resign: %v", err)
	}
	if term.WhiteDelta != 0 || term.BlackDelta != 0 {
		t.Fatalf("expected no rating deltas for an AI game, got %d/%d", term.WhiteDelta, term.BlackDelta)
	}
	aliceAfter, _ := users.GetUserByID(context.Background(), alice)
	if aliceAfter.Rating != model.DefaultRating {
		t.Fatalf("expected alice's rating unchanged, got %d", aliceAfter.Rating)
	}
}
