package chessengine

import (
	"strings"
	"testing"
)

func TestInitialPositionFEN(t *testing.T) {
	pos := NewInitialPosition()
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if got := pos.FEN(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyUCIPawnPush(t *testing.T) {
	pos := NewInitialPosition()
	next, err := ApplyUCI(pos, "e2e4")
	if err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if !strings.HasPrefix(next.FEN(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("unexpected fen: %s", next.FEN())
	}
	if next.ToMove() != Black {
		t.Fatalf("expected black to move")
	}
}

func TestApplyUCIRejectsIllegalMove(t *testing.T) {
	pos := NewInitialPosition()
	_, err := ApplyUCI(pos, "e2e5")
	if err == nil {
		t.Fatal("expected illegal move error")
	}
	var illegal *IllegalMoveError
	if !errorsAs(err, &illegal) {
		t.Fatalf("expected IllegalMoveError, got %T", err)
	}
}

func errorsAs(err error, target **IllegalMoveError) bool {
	if ie, ok := err.(*IllegalMoveError); ok {
		*target = ie
		return true
	}
	return false
}

func TestFoolsMateCheckmate(t *testing.T) {
	pos := NewInitialPosition()
	moves := []string{"f2f3", "e7e5", "g2g4", "d8h4"}
	var err error
	for _, m := range moves {
		pos, err = ApplyUCI(pos, m)
		if err != nil {
			t.Fatalf("move %s: %v", m, err)
		}
	}
	status := EvaluateStatus(pos)
	if status.Kind != Checkmate {
		t.Fatalf("expected checkmate, got %v", status.Kind)
	}
	if status.LoserColor != White {
		t.Fatalf("expected white to have lost, got %v", status.LoserColor)
	}
}

func TestOutOfTurnMoveIsIllegal(t *testing.T) {
	pos := NewInitialPosition() // white to move
	_, err := ApplyUCI(pos, "e7e5")
	if err == nil {
		t.Fatal("expected illegal move for black move while white to move")
	}
}

func TestCastlingKingside(t *testing.T) {
	pos := NewInitialPosition()
	for _, m := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "f8c5"} {
		var err error
		pos, err = ApplyUCI(pos, m)
		if err != nil {
			t.Fatalf("move %s: %v", m, err)
		}
	}
	next, err := ApplyUCI(pos, "e1g1")
	if err != nil {
		t.Fatalf("castle: %v", err)
	}
	if !strings.Contains(next.FEN(), "RNBQ1RK1") {
		t.Fatalf("castling did not move rook/king as expected: %s", next.FEN())
	}
}

func TestInsufficientMaterialDraw(t *testing.T) {
	var pos Position
	pos.board[NewSquare(4, 0)] = Piece{Type: King, Color: White}
	pos.board[NewSquare(4, 7)] = Piece{Type: King, Color: Black}
	pos.toMove = White
	pos.enPassant = -1
	pos.fullmove = 1
	pos.seenFENs = []string{pos.repetitionKey()}

	status := EvaluateStatus(pos)
	if status.Kind != InsufficientMaterial {
		t.Fatalf("expected insufficient material, got %v", status.Kind)
	}
}
