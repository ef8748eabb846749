package chessengine

import (
	"fmt"
	"strconv"
	"strings"
)

var pieceLetters = map[PieceType]rune{
	Pawn: 'p', Knight: 'n', Bishop: 'b', Rook: 'r', Queen: 'q', King: 'k',
}

// FEN renders the position in Forsyth-Edwards Notation.
func (p Position) FEN() string {
	var ranks []string
	for rank := 7; rank >= 0; rank-- {
		var sb strings.Builder
		empties := 0
		for file := 0; file < 8; file++ {
			pc := p.board[NewSquare(file, rank)]
			if pc.Type == Empty {
				empties++
				continue
			}
			if empties > 0 {
				sb.WriteString(strconv.Itoa(empties))
				empties = 0
			}
			letter := pieceLetters[pc.Type]
			if pc.Color == White {
				letter = []rune(strings.ToUpper(string(letter)))[0]
			}
			sb.WriteRune(letter)
		}
		if empties > 0 {
			sb.WriteString(strconv.Itoa(empties))
		}
		ranks = append(ranks, sb.String())
	}
	board := strings.Join(ranks, "/")

	side := "w"
	if p.toMove == Black {
		side = "b"
	}

	castle := ""
	if p.castleWK {
		castle += "K"
	}
	if p.castleWQ {
		castle += "Q"
	}
	if p.castleBK {
		castle += "k"
	}
	if p.castleBQ {
		castle += "q"
	}
	if castle == "" {
		castle = "-"
	}

	ep := "-"
	if p.enPassant >= 0 {
		ep = Square(p.enPassant).String()
	}

	return fmt.Sprintf("%s %s %s %s %d %d", board, side, castle, ep, p.halfmove, p.fullmove)
}

// repetitionKey is the FEN-derived key used for threefold repetition: board
// layout, side to move, castling rights, en passant target — the halfmove
// and fullmove counters are excluded per the standard repetition rule.
func (p Position) repetitionKey() string {
	full := p.FEN()
	fields := strings.Fields(full)
	return strings.Join(fields[:4], " ")
}

func promotionFromLetter(l byte) (PieceType, error) {
	switch l {
	case 'q':
		return Queen, nil
	case 'r':
		return Rook, nil
	case 'b':
		return Bishop, nil
	case 'n':
		return Knight, nil
	default:
		return Empty, fmt.Errorf("invalid promotion letter %q", l)
	}
}

// IllegalMoveError is returned by ApplyUCI when a move is not legal in the
// given position (spec §4.7: Result<Position, IllegalMove>).
type IllegalMoveError struct {
	Move   string
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q: %s", e.Move, e.Reason)
}

// ApplyUCI parses a UCI move string (e.g. "e2e4", "e7e8q") and, if legal in
// the given position, returns the resulting position. Otherwise returns an
// *IllegalMoveError — never a panic, matching the sum-type move result the
// spec's redesign notes call for.
func ApplyUCI(pos Position, uci string) (Position, error) {
	if len(uci) != 4 && len(uci) != 5 {
		return pos, &IllegalMoveError{Move: uci, Reason: "illegal move"}
	}
	from, err := ParseSquare(uci[0:2])
	if err != nil {
		return pos, &IllegalMoveError{Move: uci, Reason: "illegal move"}
	}
	to, err := ParseSquare(uci[2:4])
	if err != nil {
		return pos, &IllegalMoveError{Move: uci, Reason: "illegal move"}
	}
	var wantPromo PieceType
	if len(uci) == 5 {
		wantPromo, err = promotionFromLetter(uci[4])
		if err != nil {
			return pos, &IllegalMoveError{Move: uci, Reason: "illegal move"}
		}
	}

	for _, m := range pos.legalMoves() {
		if m.from != from || m.to != to {
			continue
		}
		if m.promote != Empty && m.promote != wantPromo {
			continue
		}
		if m.promote == Empty && wantPromo != Empty {
			continue
		}
		return pos.apply(m), nil
	}
	return pos, &IllegalMoveError{Move: uci, Reason: "illegal move"}
}
