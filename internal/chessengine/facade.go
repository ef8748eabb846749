package chessengine

// Engine is the narrow surface spec §4.7 names: the Game Controller talks
// to chess rules only through this interface, never through Position's
// internals directly.
type Engine interface {
	NewInitialPosition() Position
	ApplyUCI(pos Position, uciMove string) (Position, error)
	Status(pos Position) Status
}

// DefaultEngine is the built-in Engine implementation backed by the board
// representation in this package.
type DefaultEngine struct{}

func (DefaultEngine) NewInitialPosition() Position { return NewInitialPosition() }

func (DefaultEngine) ApplyUCI(pos Position, uciMove string) (Position, error) {
	return ApplyUCI(pos, uciMove)
}

func (DefaultEngine) Status(pos Position) Status { return EvaluateStatus(pos) }

// LegalMoves exposes legal UCI moves from a position — used by the AI
// opponent adapter (internal/ai) to pick a move without depending on
// chessengine internals.
func LegalMoves(pos Position) []string {
	out := make([]string, 0, 16)
	for _, m := range pos.legalMoves() {
		s := m.from.String() + m.to.String()
		if m.promote != Empty {
			s += string(promotionLetter(m.promote))
		}
		out = append(out, s)
	}
	return out
}

func promotionLetter(pt PieceType) rune {
	switch pt {
	case Queen:
		return 'q'
	case Rook:
		return 'r'
	case Bishop:
		return 'b'
	case Knight:
		return 'n'
	default:
		return 0
	}
}

// MaterialValue returns a coarse material count used by the AI adapter's
// one-ply evaluation (pawn=1 .. queen=9, king excluded).
func MaterialValue(pos Position, c Color) int {
	values := map[PieceType]int{Pawn: 1, Knight: 3, Bishop: 3, Rook: 5, Queen: 9}
	total := 0
	for sq := Square(0); sq < 64; sq++ {
		pc := pos.PieceAt(sq)
		if pc.Color == c {
			total += values[pc.Type]
		}
	}
	return total
}
