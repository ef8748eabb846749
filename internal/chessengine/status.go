package chessengine

// StatusKind enumerates the terminal (and non-terminal) states a position
// can be in, per spec §4.7.
type StatusKind int

const (
	Ongoing StatusKind = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	FiftyMove
	ThreefoldRepetition
)

func (k StatusKind) String() string {
	switch k {
	case Ongoing:
		return "ongoing"
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case FiftyMove:
		return "fifty_move"
	case ThreefoldRepetition:
		return "threefold_repetition"
	default:
		return "unknown"
	}
}

// Status is the result of evaluating a position's terminal condition.
// LoserColor is meaningful only when Kind == Checkmate.
type Status struct {
	Kind       StatusKind
	LoserColor Color
}

// EvaluateStatus is the facade's `status(pos)` operation, checked in the
// order the rules normally take precedence: checkmate/stalemate first (no
// legal moves), then draw conditions that apply regardless of mobility.
func EvaluateStatus(pos Position) Status {
	if len(pos.legalMoves()) == 0 {
		if pos.inCheck(pos.toMove) {
			return Status{Kind: Checkmate, LoserColor: pos.toMove}
		}
		return Status{Kind: Stalemate}
	}
	if isInsufficientMaterial(pos) {
		return Status{Kind: InsufficientMaterial}
	}
	if pos.halfmove >= 100 {
		return Status{Kind: FiftyMove}
	}
	if countOccurrences(pos.seenFENs, pos.repetitionKey()) >= 3 {
		return Status{Kind: ThreefoldRepetition}
	}
	return Status{Kind: Ongoing}
}

func countOccurrences(haystack []string, needle string) int {
	n := 0
	for _, s := range haystack {
		if s == needle {
			n++
		}
	}
	return n
}

// isInsufficientMaterial reports true for the standard dead positions: bare
// kings, king+minor vs king, or king+bishop vs king+bishop on same-color
// squares. Other drawn-but-technically-mating material (e.g. KBB vs K) is
// left for the fifty-move/repetition rules to eventually catch, matching
// how most simplified engines handle this corner.
func isInsufficientMaterial(pos Position) bool {
	var whiteMinor, blackMinor int
	var whiteBishopSquares, blackBishopSquares []Square
	for sq := Square(0); sq < 64; sq++ {
		pc := pos.board[sq]
		switch pc.Type {
		case Empty, King:
			continue
		case Bishop:
			if pc.Color == White {
				whiteMinor++
				whiteBishopSquares = append(whiteBishopSquares, sq)
			} else {
				blackMinor++
				blackBishopSquares = append(blackBishopSquares, sq)
			}
		case Knight:
			if pc.Color == White {
				whiteMinor++
			} else {
				blackMinor++
			}
		default:
			return false // pawn, rook, or queen on board: sufficient material
		}
	}
	if whiteMinor == 0 && blackMinor == 0 {
		return true // K vs K
	}
	if whiteMinor+blackMinor == 1 {
		return true // K+minor vs K
	}
	if whiteMinor == 1 && blackMinor == 1 && len(whiteBishopSquares) == 1 && len(blackBishopSquares) == 1 {
		return squareColor(whiteBishopSquares[0]) == squareColor(blackBishopSquares[0])
	}
	return false
}

func squareColor(sq Square) int {
	return (sq.File() + sq.Rank()) % 2
}
