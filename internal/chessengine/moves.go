package chessengine

// move is one fully-specified pseudo-legal move before legality filtering.
type move struct {
	from, to  Square
	promote   PieceType // Empty if not a promotion
	isCastle  bool
	castleStr string // "K", "Q", "k", "q" — which right this move would use
	isEP      bool   // en passant capture
	isDouble  bool   // pawn double-push (sets en passant target)
}

var knightOffsets = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingOffsets = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var bishopDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func inBounds(file, rank int) bool { return file >= 0 && file < 8 && rank >= 0 && rank < 8 }

// pseudoLegalMoves generates all moves for the side to move that obey piece
// movement rules but may leave that side's own king in check.
func (p Position) pseudoLegalMoves() []move {
	var moves []move
	for sq := Square(0); sq < 64; sq++ {
		piece := p.board[sq]
		if piece.Type == Empty || piece.Color != p.toMove {
			continue
		}
		switch piece.Type {
		case Pawn:
			moves = append(moves, p.pawnMoves(sq)...)
		case Knight:
			moves = append(moves, p.stepMoves(sq, knightOffsets)...)
		case King:
			moves = append(moves, p.stepMoves(sq, kingOffsets)...)
			moves = append(moves, p.castleMoves(sq)...)
		case Bishop:
			moves = append(moves, p.slideMoves(sq, bishopDirs)...)
		case Rook:
			moves = append(moves, p.slideMoves(sq, rookDirs)...)
		case Queen:
			moves = append(moves, p.slideMoves(sq, append(append([][2]int{}, bishopDirs...), rookDirs...))...)
		}
	}
	return moves
}

func (p Position) pawnMoves(sq Square) []move {
	var moves []move
	file, rank := sq.File(), sq.Rank()
	dir := 1
	startRank, promoRank := 1, 7
	if p.toMove == Black {
		dir = -1
		startRank, promoRank = 6, 0
	}

	addPromoOrPlain := func(from, to Square, isCapture bool) {
		if to.Rank() == promoRank {
			for _, pt := range []PieceType{Queen, Rook, Bishop, Knight} {
				moves = append(moves, move{from: from, to: to, promote: pt})
			}
		} else {
			moves = append(moves, move{from: from, to: to})
		}
	}

	// single push
	if inBounds(file, rank+dir) {
		oneAhead := NewSquare(file, rank+dir)
		if p.board[oneAhead].Type == Empty {
			addPromoOrPlain(sq, oneAhead, false)
			if rank == startRank {
				twoAhead := NewSquare(file, rank+2*dir)
				if p.board[twoAhead].Type == Empty {
					moves = append(moves, move{from: sq, to: twoAhead, isDouble: true})
				}
			}
		}
	}
	// captures (incl en passant)
	for _, df := range []int{-1, 1} {
		nf, nr := file+df, rank+dir
		if !inBounds(nf, nr) {
			continue
		}
		to := NewSquare(nf, nr)
		target := p.board[to]
		if target.Type != Empty && target.Color != p.toMove {
			addPromoOrPlain(sq, to, true)
		} else if p.enPassant >= 0 && Square(p.enPassant) == to {
			moves = append(moves, move{from: sq, to: to, isEP: true})
		}
	}
	return moves
}

func (p Position) stepMoves(sq Square, offsets [][2]int) []move {
	var moves []move
	file, rank := sq.File(), sq.Rank()
	for _, o := range offsets {
		nf, nr := file+o[0], rank+o[1]
		if !inBounds(nf, nr) {
			continue
		}
		to := NewSquare(nf, nr)
		target := p.board[to]
		if target.Type == Empty || target.Color != p.toMove {
			moves = append(moves, move{from: sq, to: to})
		}
	}
	return moves
}

func (p Position) slideMoves(sq Square, dirs [][2]int) []move {
	var moves []move
	file, rank := sq.File(), sq.Rank()
	for _, d := range dirs {
		nf, nr := file+d[0], rank+d[1]
		for inBounds(nf, nr) {
			to := NewSquare(nf, nr)
			target := p.board[to]
			if target.Type == Empty {
				moves = append(moves, move{from: sq, to: to})
			} else {
				if target.Color != p.toMove {
					moves = append(moves, move{from: sq, to: to})
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}
	return moves
}

func (p Position) castleMoves(kingSq Square) []move {
	var moves []move
	rank := 0
	if p.toMove == Black {
		rank = 7
	}
	if kingSq != NewSquare(4, rank) {
		return nil
	}
	enemy := p.toMove.Opposite()
	if p.isAttacked(kingSq, enemy) {
		return nil // can't castle out of check
	}

	canKingside := p.toMove == White && p.castleWK || p.toMove == Black && p.castleBK
	if canKingside {
		f, g := NewSquare(5, rank), NewSquare(6, rank)
		if p.board[f].Type == Empty && p.board[g].Type == Empty &&
			!p.isAttacked(f, enemy) && !p.isAttacked(g, enemy) {
			moves = append(moves, move{from: kingSq, to: g, isCastle: true, castleStr: "K"})
		}
	}
	canQueenside := p.toMove == White && p.castleWQ || p.toMove == Black && p.castleBQ
	if canQueenside {
		d, c, b := NewSquare(3, rank), NewSquare(2, rank), NewSquare(1, rank)
		if p.board[d].Type == Empty && p.board[c].Type == Empty && p.board[b].Type == Empty &&
			!p.isAttacked(d, enemy) && !p.isAttacked(c, enemy) {
			moves = append(moves, move{from: kingSq, to: c, isCastle: true, castleStr: "Q"})
		}
	}
	return moves
}

// isAttacked reports whether sq is attacked by any piece of color `by`.
func (p Position) isAttacked(sq Square, by Color) bool {
	file, rank := sq.File(), sq.Rank()

	// pawns
	pawnDir := -1
	if by == Black {
		pawnDir = 1
	}
	for _, df := range []int{-1, 1} {
		nf, nr := file+df, rank+pawnDir
		if inBounds(nf, nr) {
			if pc := p.board[NewSquare(nf, nr)]; pc.Type == Pawn && pc.Color == by {
				return true
			}
		}
	}
	// knights
	for _, o := range knightOffsets {
		nf, nr := file+o[0], rank+o[1]
		if inBounds(nf, nr) {
			if pc := p.board[NewSquare(nf, nr)]; pc.Type == Knight && pc.Color == by {
				return true
			}
		}
	}
	// king
	for _, o := range kingOffsets {
		nf, nr := file+o[0], rank+o[1]
		if inBounds(nf, nr) {
			if pc := p.board[NewSquare(nf, nr)]; pc.Type == King && pc.Color == by {
				return true
			}
		}
	}
	// sliding: bishops/queens on diagonals, rooks/queens on files/ranks
	for _, d := range bishopDirs {
		nf, nr := file+d[0], rank+d[1]
		for inBounds(nf, nr) {
			pc := p.board[NewSquare(nf, nr)]
			if pc.Type != Empty {
				if pc.Color == by && (pc.Type == Bishop || pc.Type == Queen) {
					return true
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}
	for _, d := range rookDirs {
		nf, nr := file+d[0], rank+d[1]
		for inBounds(nf, nr) {
			pc := p.board[NewSquare(nf, nr)]
			if pc.Type != Empty {
				if pc.Color == by && (pc.Type == Rook || pc.Type == Queen) {
					return true
				}
				break
			}
			nf += d[0]
			nr += d[1]
		}
	}
	return false
}

func (p Position) kingSquare(c Color) Square {
	for sq := Square(0); sq < 64; sq++ {
		pc := p.board[sq]
		if pc.Type == King && pc.Color == c {
			return sq
		}
	}
	return -1
}

func (p Position) inCheck(c Color) bool {
	k := p.kingSquare(c)
	if k < 0 {
		return false
	}
	return p.isAttacked(k, c.Opposite())
}

// apply executes a pseudo-legal move, returning the resulting position. It
// does not check legality (the king may end up in check) — callers must
// filter with legalMoves or inCheck after.
func (p Position) apply(m move) Position {
	out := p.clone()
	mover := out.board[m.from]
	isCapture := out.board[m.to].Type != Empty || m.isEP

	out.board[m.from] = empty
	if m.promote != Empty {
		out.board[m.to] = Piece{Type: m.promote, Color: mover.Color}
	} else {
		out.board[m.to] = mover
	}

	if m.isEP {
		capturedRank := m.to.Rank() - 1
		if mover.Color == Black {
			capturedRank = m.to.Rank() + 1
		}
		out.board[NewSquare(m.to.File(), capturedRank)] = empty
	}

	if m.isCastle {
		rank := m.from.Rank()
		if m.castleStr == "K" || m.castleStr == "k" {
			out.board[NewSquare(5, rank)] = out.board[NewSquare(7, rank)]
			out.board[NewSquare(7, rank)] = empty
		} else {
			out.board[NewSquare(3, rank)] = out.board[NewSquare(0, rank)]
			out.board[NewSquare(0, rank)] = empty
		}
	}

	// castling rights
	if mover.Type == King {
		if mover.Color == White {
			out.castleWK, out.castleWQ = false, false
		} else {
			out.castleBK, out.castleBQ = false, false
		}
	}
	clearRightsForRookSquare := func(sq Square) {
		switch sq {
		case NewSquare(0, 0):
			out.castleWQ = false
		case NewSquare(7, 0):
			out.castleWK = false
		case NewSquare(0, 7):
			out.castleBQ = false
		case NewSquare(7, 7):
			out.castleBK = false
		}
	}
	clearRightsForRookSquare(m.from)
	clearRightsForRookSquare(m.to)

	if m.isDouble {
		epRank := (m.from.Rank() + m.to.Rank()) / 2
		out.enPassant = int(NewSquare(m.from.File(), epRank))
	} else {
		out.enPassant = -1
	}

	if mover.Type == Pawn || isCapture {
		out.halfmove = 0
	} else {
		out.halfmove = p.halfmove + 1
	}

	if p.toMove == Black {
		out.fullmove = p.fullmove + 1
	}
	out.toMove = p.toMove.Opposite()
	out.seenFENs = append(out.seenFENs, out.repetitionKey())
	return out
}

// legalMoves returns pseudo-legal moves that do not leave the mover's own
// king in check.
func (p Position) legalMoves() []move {
	var out []move
	for _, m := range p.pseudoLegalMoves() {
		next := p.apply(m)
		if !next.inCheck(p.toMove) {
			out = append(out, m)
		}
	}
	return out
}
